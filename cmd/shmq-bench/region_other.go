// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !linux

package main

import (
	"errors"

	"code.hybscloud.com/shmq"
)

func makeRegion(cfg config) (shmq.Region, func(), error) {
	if cfg.Path != "" {
		return nil, nil, errors.New("file-backed regions require linux")
	}
	return shmq.NewHeapRegion(shmq.QueueSize(cfg.Capacity, cfg.Payload)), func() {}, nil
}
