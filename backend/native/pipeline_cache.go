package native

import (
	"encoding/binary"
	"hash"
	"hash/fnv"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gapi"
)

// pipelineKey identifies a native render pipeline.
type pipelineKey struct {
	effect       gapi.ResourceID
	generation   uint64
	vertexStruct gapi.ResourceID
	// layout is a hash of the vertex buffer layouts derived from the
	// vertex struct and the effect streams.
	layout      uint64
	state       pipelineState
	topology    gputypes.PrimitiveTopology
	indexFormat gputypes.IndexFormat
}

// pipelineCache caches render pipelines by key and counts hits and misses.
//
// pipelineCache is not safe for concurrent use; the backend serializes
// all calls.
type pipelineCache struct {
	entries map[pipelineKey]hal.RenderPipeline
	hits    uint64
	misses  uint64
}

func newPipelineCache() *pipelineCache {
	return &pipelineCache{entries: make(map[pipelineKey]hal.RenderPipeline)}
}

// getOrCreate returns the pipeline for key, calling create on a miss.
func (c *pipelineCache) getOrCreate(key pipelineKey, create func() (hal.RenderPipeline, error)) (hal.RenderPipeline, error) {
	if p, ok := c.entries[key]; ok {
		c.hits++
		return p, nil
	}
	p, err := create()
	if err != nil {
		return nil, err
	}
	c.entries[key] = p
	c.misses++
	return p, nil
}

func (c *pipelineCache) stats() (hits, misses uint64) {
	return c.hits, c.misses
}

func (c *pipelineCache) size() int {
	return len(c.entries)
}

// purge removes the entries matching fn. The removed pipelines are
// handed to release.
func (c *pipelineCache) purge(fn func(pipelineKey) bool, release func(hal.RenderPipeline)) {
	for k, p := range c.entries {
		if fn(k) {
			delete(c.entries, k)
			if release != nil {
				release(p)
			}
		}
	}
}

func (c *pipelineCache) reset(device hal.Device) {
	for k, p := range c.entries {
		if device != nil {
			device.DestroyRenderPipeline(p)
		}
		delete(c.entries, k)
	}
}

// purgePipelines drops the cached pipelines whose key matches fn. A
// pipeline the open render pass may reference is destroyed after the
// next submit.
func (g *GAPI) purgePipelines(fn func(pipelineKey) bool) {
	g.pipelines.purge(fn, func(p hal.RenderPipeline) {
		g.retire(nil, func() { g.device.DestroyRenderPipeline(p) })
	})
}

// hashLayouts hashes vertex buffer layouts for use in a pipelineKey.
func hashLayouts(layouts []gputypes.VertexBufferLayout) uint64 {
	h := fnv.New64a()
	for i := range layouts {
		l := &layouts[i]
		hashWriteUint64(h, l.ArrayStride)
		hashWriteUint32(h, uint32(l.StepMode))
		for _, a := range l.Attributes {
			hashWriteUint32(h, uint32(a.Format))
			hashWriteUint64(h, a.Offset)
			hashWriteUint32(h, a.ShaderLocation)
		}
		// Separator between buffers.
		hashWriteUint32(h, 0xffffffff)
	}
	return h.Sum64()
}

func hashWriteUint32(h hash.Hash64, v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, _ = h.Write(buf[:])
}

func hashWriteUint64(h hash.Hash64, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, _ = h.Write(buf[:])
}
