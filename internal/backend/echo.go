// Package backend holds the placeholder compute backend. Real
// backends live outside this server and only see the provider pair;
// this one exists so the binary can serve end to end without an
// accelerator attached.
package backend

import (
	"inferd/internal/infer"
)

// Echo returns a run function that fills every requested output of
// every payload from the request's first input bytes, repeating or
// truncating as needed. Output sizes come from the servable's
// descriptor, so responses are always shape-consistent.
func Echo(s *infer.Servable) infer.RunFunc {
	return func(runnerID int, payloads []*infer.Payload) {
		for _, p := range payloads {
			if err := runOne(s, p); err != nil {
				p.Err = err
			}
		}
	}
}

func runOne(s *infer.Servable, p *infer.Payload) error {
	header := p.Request.RequestHeader()
	src, err := p.Request.GetNextInputContent(0, true)
	if err != nil {
		return err
	}
	for _, out := range header.Outputs {
		if !p.Response.RequiresOutput(out.Name) {
			continue
		}
		cfg, err := s.GetOutput(out.Name)
		if err != nil {
			return err
		}
		elems := uint64(1)
		for _, d := range cfg.Dims {
			elems *= uint64(d)
		}
		byteSize := cfg.DataType.ByteSize() * elems * uint64(header.BatchSize)
		shape := append([]int64{int64(header.BatchSize)}, cfg.Dims...)
		buf, err := p.Response.GetOutputBuffer(out.Name, byteSize, shape)
		if err != nil {
			return err
		}
		for i := range buf {
			if len(src) > 0 {
				buf[i] = src[i%len(src)]
			}
		}
	}
	return nil
}
