package service

import "sync"

const lockStripes = 64

// stripedMutex serializes mutations per entity id without holding one
// global lock. The stripe count bounds memory; collisions only cost a
// little extra contention.
type stripedMutex struct {
	stripes [lockStripes]sync.Mutex
}

func newStripedMutex() *stripedMutex { return &stripedMutex{} }

func (s *stripedMutex) Lock(id uint)   { s.stripes[id%lockStripes].Lock() }
func (s *stripedMutex) Unlock(id uint) { s.stripes[id%lockStripes].Unlock() }
