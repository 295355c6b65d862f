// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command shmq-bench drives a request/response round-trip workload over
// a shared-memory queue pair and reports throughput. With SHMQ_PATH set
// it maps a file-backed region, exercising the same layout two
// processes would attach; otherwise it runs over a heap region.
package main

import (
	"bytes"
	"encoding/binary"
	"errors"
	"sync"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"

	"code.hybscloud.com/shmq"
)

type config struct {
	Capacity int           `envconfig:"CAPACITY" default:"64"`
	Payload  int           `envconfig:"PAYLOAD" default:"64"`
	Clients  int           `envconfig:"CLIENTS" default:"4"`
	Requests int           `envconfig:"REQUESTS" default:"100000"`
	Path     string        `envconfig:"PATH" default:""`
	Timeout  time.Duration `envconfig:"TIMEOUT" default:"30s"`
}

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	var cfg config
	if err := envconfig.Process("shmq", &cfg); err != nil {
		log.Fatal("load config", zap.Error(err))
	}

	region, cleanup, err := makeRegion(cfg)
	if err != nil {
		log.Fatal("create region", zap.Error(err))
	}
	defer cleanup()

	q, err := shmq.CreateQueue(region, cfg.Capacity, cfg.Payload)
	if err != nil {
		log.Fatal("create queue", zap.Error(err))
	}
	defer q.Close()

	log.Info("starting",
		zap.Int("capacity", q.Cap()),
		zap.Int("payload", q.PayloadSize()),
		zap.Int("clients", cfg.Clients),
		zap.Int("requests", cfg.Requests),
		zap.String("path", cfg.Path),
	)

	server := shmq.ServerEnd(q)
	var served sync.WaitGroup
	served.Add(1)
	go func() {
		defer served.Done()
		echoServer(server, log)
	}()

	// One shared client endpoint: concurrent callers are correlated by
	// request id, so any goroutine may drain any completion.
	ep := shmq.ClientEnd(q)
	start := time.Now()
	var clients sync.WaitGroup
	for c := range cfg.Clients {
		clients.Add(1)
		go func() {
			defer clients.Done()
			cmd := make([]byte, 8)
			for i := range cfg.Requests / cfg.Clients {
				binary.LittleEndian.PutUint64(cmd, uint64(c)<<32|uint64(i))
				info, err := shmq.Call(ep, cmd)
				if err != nil {
					log.Error("call", zap.Error(err))
					return
				}
				if !bytes.Equal(info, cmd) {
					log.Error("echo mismatch",
						zap.Binary("sent", cmd),
						zap.Binary("got", info),
					)
					return
				}
			}
		}()
	}
	clients.Wait()
	elapsed := time.Since(start)

	q.Close()
	served.Wait()

	total := cfg.Requests / cfg.Clients * cfg.Clients
	log.Info("done",
		zap.Int("round_trips", total),
		zap.Duration("elapsed", elapsed),
		zap.Float64("rps", float64(total)/elapsed.Seconds()),
	)
}

// echoServer completes every received command with its own bytes until
// the queue closes.
func echoServer(ep *shmq.Endpoint, log *zap.Logger) {
	for {
		req, err := ep.Receive()
		if err != nil {
			if shmq.IsWouldBlock(err) {
				time.Sleep(time.Microsecond)
				continue
			}
			return
		}
		for {
			err := ep.Complete(req.ID, req.Command)
			if err == nil {
				break
			}
			if !shmq.IsWouldBlock(err) {
				if !errors.Is(err, shmq.ErrClosed) {
					log.Error("complete", zap.Error(err))
				}
				return
			}
			time.Sleep(time.Microsecond)
		}
	}
}
