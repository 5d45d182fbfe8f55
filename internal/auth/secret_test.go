package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckSecret(t *testing.T) {
	tests := []struct {
		name       string
		provided   string
		configured string
		want       AuthorizationResult
	}{
		{"match", "s3cret-value", "s3cret-value", AuthorizationResult{Allowed: true, Reason: ReasonOK}},
		{"server secret unset", "anything", "", AuthorizationResult{Reason: ReasonNotConfigured}},
		{"both empty", "", "", AuthorizationResult{Reason: ReasonNotConfigured}},
		{"missing", "", "s3cret-value", AuthorizationResult{Reason: ReasonMissing}},
		{"mismatch", "wrong", "s3cret-value", AuthorizationResult{Reason: ReasonMismatch}},
		{"prefix is not enough", "s3cret", "s3cret-value", AuthorizationResult{Reason: ReasonMismatch}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CheckSecret(tt.provided, tt.configured))
		})
	}
}
