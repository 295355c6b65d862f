// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package main

import "code.hybscloud.com/shmq"

func makeRegion(cfg config) (shmq.Region, func(), error) {
	size := shmq.QueueSize(cfg.Capacity, cfg.Payload)
	if cfg.Path == "" {
		return shmq.NewHeapRegion(size), func() {}, nil
	}
	fr, err := shmq.CreateFileRegion(cfg.Path, size)
	if err != nil {
		return nil, nil, err
	}
	return fr, func() {
		fr.Close()
		fr.Remove()
	}, nil
}
