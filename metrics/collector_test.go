// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCollectorExposesRecordedValues(t *testing.T) {
	c := NewCollector()
	c.SetPoolSize(42, 1<<20)
	c.AddEvictions(3)
	c.AddExpirations(1)
	c.ObserveTemplateAssembly(0.25)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	c.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	require.Contains(t, body, "mempoolcore_pool_transactions 42")
	require.Contains(t, body, "mempoolcore_pool_evictions_total 3")
	require.Contains(t, body, "mempoolcore_pool_expirations_total 1")
	require.True(t, strings.Contains(body, "mempoolcore_mining_block_template_assembly_seconds"))
}
