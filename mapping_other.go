// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !(linux && (amd64 || arm64))

package shmq

import "go.uber.org/zap"

// This file backs every platform without a dedicated double-mapping
// implementation: a stub that always fails cleanly rather than a
// compile error, so the rest of the module (and anything that merely
// imports it without calling into the mapping engine) still builds.

type mapping struct {
	capacity int
	queue    *Queue
}

func canGetBacking(name string) bool {
	return false
}

func deleteBacking(name string) error {
	return ErrUnsupportedPlatform
}

func createBacking(name string, capacity int, sync bool, mdInit func([]byte), log *zap.Logger) error {
	return ErrUnsupportedPlatform
}

func openBacking(name string, log *zap.Logger) (*mapping, error) {
	return nil, ErrUnsupportedPlatform
}

func (m *mapping) unmap() error {
	return ErrUnsupportedPlatform
}
