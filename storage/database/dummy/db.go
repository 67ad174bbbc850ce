package dummydb

import (
	"sync"

	"github.com/peakform/funnel/core/funnel"
	"github.com/peakform/funnel/core/session"
	"github.com/peakform/funnel/core/tenant"
)

type (
	DB struct {
		funnel  *funnelTable
		session *sessionTable
		tenant  *tenantTable
	}

	funnelTable struct {
		sync.RWMutex
		table map[string]*funnel.Funnel
	}

	sessionTable struct {
		sync.RWMutex
		table map[string]*session.Session
	}

	tenantTable struct {
		sync.RWMutex
		table map[string]*tenant.APIKey
	}
)

func Open() (*DB, error) {
	db := &DB{
		funnel:  &funnelTable{table: make(map[string]*funnel.Funnel)},
		session: &sessionTable{table: make(map[string]*session.Session)},
		tenant:  &tenantTable{table: make(map[string]*tenant.APIKey)},
	}
	return db, nil
}
