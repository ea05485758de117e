package provider_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	xerrors "hushpay/internal/errors"
	"hushpay/internal/provider"
	"hushpay/internal/provider/httpapi"
)

func TestFailedClassifiesErrors(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		code      xerrors.Code
		retryable bool
		alert     bool
		severity  xerrors.Severity
	}{
		{"deadline", fmt.Errorf("perform request: %w", context.DeadlineExceeded), xerrors.CodeTimeout, true, true, xerrors.SeverityWarning},
		{"transport", errors.New("connection reset"), provider.CodeProviderError, true, true, xerrors.SeverityWarning},
		{"server", &httpapi.APIError{StatusCode: 503}, provider.CodeProviderError, true, true, xerrors.SeverityWarning},
		{"throttled", &httpapi.APIError{StatusCode: 429}, provider.CodeProviderError, true, false, xerrors.SeverityWarning},
		{"bad request", &httpapi.APIError{StatusCode: 400}, provider.CodeProviderError, false, true, xerrors.SeverityWarning},
		{"credentials", &httpapi.APIError{StatusCode: 401}, provider.CodeProviderError, false, true, xerrors.SeverityCritical},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := provider.Failed("twilio", tc.err)
			assert.Equal(t, tc.code, xerrors.CodeOf(err))
			assert.Equal(t, tc.retryable, xerrors.RetryableError(err))
			assert.Equal(t, tc.alert, xerrors.ShouldAlert(err))
			assert.Equal(t, tc.severity, xerrors.SeverityOf(err))
			assert.True(t, errors.Is(err, tc.err))
		})
	}
	assert.NoError(t, provider.Failed("twilio", nil))
}
