//go:build amd64 || arm64

package core

import "github.com/bytedance/sonic"

// sonic's JIT backend is only built for amd64 and arm64.
var (
	jsonMarshal   = sonic.ConfigStd.Marshal
	jsonUnmarshal = sonic.ConfigStd.Unmarshal
)
