// Package mempool recycles the float32 buffers of model input tensors.
// Pages and bubble crops arrive in a handful of sizes, so buffers are pooled
// per size class.
package mempool

import "sync"

const classStep = 1024

var float32Pools sync.Map // size class -> *sync.Pool

// sizeClass rounds n up to the next multiple of classStep.
func sizeClass(n int) int {
	if n <= classStep {
		return classStep
	}
	return (n + classStep - 1) / classStep * classStep
}

func poolFor(cls int) *sync.Pool {
	if p, ok := float32Pools.Load(cls); ok {
		return p.(*sync.Pool)
	}
	p, _ := float32Pools.LoadOrStore(cls, &sync.Pool{
		New: func() any {
			buf := make([]float32, cls)
			return &buf
		},
	})
	return p.(*sync.Pool)
}

// GetFloat32 returns a buffer of length n. Contents are not zeroed; callers
// overwrite every element. Return it with PutFloat32.
func GetFloat32(n int) []float32 {
	if n <= 0 {
		return nil
	}
	cls := sizeClass(n)
	buf := *poolFor(cls).Get().(*[]float32)
	if cap(buf) < n {
		buf = make([]float32, cls)
	}
	return buf[:n]
}

// PutFloat32 returns buf to its pool. Buffers that did not come from
// GetFloat32 are accepted when their capacity is a class size; others are dropped.
func PutFloat32(buf []float32) {
	c := cap(buf)
	if c == 0 || c%classStep != 0 {
		return
	}
	buf = buf[:c]
	poolFor(c).Put(&buf)
}
