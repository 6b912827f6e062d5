//go:build cgo

package main

import (
	"go.uber.org/zap"

	"github.com/wippyai/ctxbind"
	"github.com/wippyai/ctxbind/native/clib"
)

func openCLibrary(log *zap.Logger) (ctxbind.Library, func(), error) {
	return clib.New(log), func() {}, nil
}
