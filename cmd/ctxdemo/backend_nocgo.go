//go:build !cgo

package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/ctxbind"
)

func openCLibrary(*zap.Logger) (ctxbind.Library, func(), error) {
	return nil, nil, fmt.Errorf("c backend requires a cgo build")
}
