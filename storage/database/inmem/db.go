package inmemdb

import (
	"sync"

	"github.com/chihwayi/ecd-materials-generator-sub003/core/material"
)

type (
	DB struct {
		material *materialTable
	}

	materialTable struct {
		table map[string]*material.Material
		mutex sync.RWMutex
	}
)

func Open() *DB {
	return &DB{
		material: &materialTable{table: make(map[string]*material.Material)},
	}
}
