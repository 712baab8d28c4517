package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gobihapalanivel/VendorPulse/internal/service"
	"github.com/gobihapalanivel/VendorPulse/internal/upstream"

	"github.com/stretchr/testify/assert"
)

func TestUpstreamStatusMapping(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, upstreamStatus(upstream.ErrNoSession))
	assert.Equal(t, http.StatusNotFound, upstreamStatus(&upstream.APIError{StatusCode: http.StatusNotFound}))
	assert.Equal(t, http.StatusBadRequest, upstreamStatus(fmt.Errorf("order rejected: %w", &upstream.APIError{StatusCode: http.StatusBadRequest})))
	assert.Equal(t, http.StatusBadGateway, upstreamStatus(errors.New("connection refused")))
}

func TestRecalcStatusMapping(t *testing.T) {
	assert.Equal(t, http.StatusConflict, recalcStatus(service.ErrRecalcInProgress))
	assert.Equal(t, http.StatusConflict, recalcStatus(fmt.Errorf("recalculation skipped: %w", service.ErrRecalcInProgress)))
	assert.Equal(t, http.StatusUnauthorized, recalcStatus(upstream.ErrNoSession))
	assert.Equal(t, http.StatusBadGateway, recalcStatus(errors.New("kafka down")))
}
