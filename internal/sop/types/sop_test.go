package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextStepUnmarshal(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"null is terminal", `null`, nil},
		{"single id", `"review"`, []string{"review"}},
		{"empty string is terminal", `""`, nil},
		{"end is terminal", `"end"`, nil},
		{"array of candidates", `["draft","review"]`, []string{"draft", "review"}},
		{"empty array is terminal", `[]`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var n NextStep
			require.NoError(t, json.Unmarshal([]byte(tt.in), &n))
			assert.Equal(t, tt.want, n.IDs)
			assert.Equal(t, len(tt.want) == 0, n.IsTerminal())
		})
	}
}

func TestNextStepUnmarshalRejectsOtherTypes(t *testing.T) {
	var n NextStep
	assert.Error(t, json.Unmarshal([]byte(`42`), &n))
	assert.Error(t, json.Unmarshal([]byte(`{"id":"x"}`), &n))
}

func TestNextStepMarshal(t *testing.T) {
	out, err := json.Marshal(NextStep{})
	require.NoError(t, err)
	assert.Equal(t, `null`, string(out))

	out, err = json.Marshal(NextStep{IDs: []string{"review"}})
	require.NoError(t, err)
	assert.Equal(t, `"review"`, string(out))

	out, err = json.Marshal(NextStep{IDs: []string{"a", "b"}})
	require.NoError(t, err)
	assert.Equal(t, `["a","b"]`, string(out))
}

func TestSOPStepLookup(t *testing.T) {
	sop := &SOP{
		Steps: []Step{
			{ID: "two", StepNumber: 2},
			{ID: "one", StepNumber: 1},
			{ID: "three", StepNumber: 3},
		},
	}

	require.NotNil(t, sop.Step("two"))
	assert.Nil(t, sop.Step("missing"))

	first := sop.FirstStep()
	require.NotNil(t, first)
	assert.Equal(t, "one", first.ID)

	ordered := sop.StepsInOrder()
	require.Len(t, ordered, 3)
	assert.Equal(t, "one", ordered[0].ID)
	assert.Equal(t, "three", ordered[2].ID)
}

func TestFirstStepEmptySOP(t *testing.T) {
	assert.Nil(t, (&SOP{}).FirstStep())
}
