package infer

import "github.com/rs/zerolog"

// zlog is an optional structured logger. If unset, the package is silent.
var zlog *zerolog.Logger

// SetLogger installs a structured logger used by the inference layer.
func SetLogger(l zerolog.Logger) { zlog = &l }
