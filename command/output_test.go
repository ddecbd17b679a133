package command

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type testResult struct {
	Name string `json:"name"`
}

func (r *testResult) GetOutput() string {
	return "name: " + r.Name
}

func TestOutputter(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		json   bool
		result CommandResult
		err    error
		out    string
		errOut string
	}{
		{"cli result", false, &testResult{"alice"}, nil, "name: alice\n", ""},
		{"json result", true, &testResult{"alice"}, nil, "{\"name\":\"alice\"}\n", ""},
		{"cli error", false, &testResult{"alice"}, errors.New("boom"), "", "boom\n"},
		{"json error", true, nil, errors.New("boom"), "", "{\"error\":\"boom\"}\n"},
		{"nothing", true, nil, nil, "", ""},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			var out, errOut bytes.Buffer

			outputter := newOutputter(c.json, &out, &errOut)
			if c.result != nil {
				outputter.SetCommandResult(c.result)
			}

			if c.err != nil {
				outputter.SetError(c.err)
			}

			outputter.WriteOutput()

			assert.Equal(t, c.out, out.String())
			assert.Equal(t, c.errOut, errOut.String())
		})
	}
}
