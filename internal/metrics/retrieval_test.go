package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveRetrieval(t *testing.T) {
	RegisterMatchingMetrics()
	RegisterMatchingMetrics()

	before := testutil.ToFloat64(RetrievalsTotal.WithLabelValues("medical", "entity"))
	ObserveRetrieval("medical", "entity", 1.0)
	assert.Equal(t, before+1, testutil.ToFloat64(RetrievalsTotal.WithLabelValues("medical", "entity")))
	assert.Positive(t, testutil.CollectAndCount(MatchConfidence))

	noneBefore := testutil.ToFloat64(RetrievalsTotal.WithLabelValues("legal", "none"))
	ObserveRetrieval("legal", "", 0)
	assert.Equal(t, noneBefore+1, testutil.ToFloat64(RetrievalsTotal.WithLabelValues("legal", "none")))
}
