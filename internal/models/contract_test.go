package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContractStatus_Terminal(t *testing.T) {
	cases := map[ContractStatus]bool{
		ContractPending:   false,
		ContractStarted:   false,
		ContractDelivered: false,
		ContractApproved:  true,
		ContractCancelled: true,
	}
	for status, want := range cases {
		assert.Equal(t, want, status.Terminal(), status)
	}
}
