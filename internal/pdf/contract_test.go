package pdf

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContractRendersWithBuiltinFont(t *testing.T) {
	g := NewDocumentGenerator("")
	var buf bytes.Buffer

	err := g.Contract(&buf, ContractData{
		ContractID:   "c-1",
		TaskTitle:    "Assemble shelf",
		Requester:    "Rita",
		Helper:       "Hank",
		AgreedAmount: "40.00",
		Status:       "pending",
		CreatedAt:    time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		UpdatedAt:    time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}
