package storage

import (
	"bytes"
	"fmt"

	"github.com/0xPolygon/substrate-client/command/helper"
)

type ValueResult struct {
	Address string `json:"address"`
	At      string `json:"at"`
	Found   bool   `json:"found"`
	Value   string `json:"value,omitempty"`
}

func (r *ValueResult) GetOutput() string {
	var buffer bytes.Buffer

	value := r.Value
	if !r.Found {
		value = ""
	}

	buffer.WriteString("\n[STORAGE VALUE]\n")
	buffer.WriteString(helper.FormatKV([]string{
		fmt.Sprintf("Address|%s", r.Address),
		fmt.Sprintf("At block|%s", r.At),
		fmt.Sprintf("Value|%s", value),
	}))
	buffer.WriteString("\n")

	return buffer.String()
}

type KeysResult struct {
	At   string   `json:"at"`
	Keys []string `json:"keys"`
}

func (r *KeysResult) GetOutput() string {
	var buffer bytes.Buffer

	buffer.WriteString(fmt.Sprintf("\n[STORAGE KEYS AT %s]\n", r.At))
	buffer.WriteString(helper.FormatList(r.Keys))
	buffer.WriteString("\n")
	buffer.WriteString(fmt.Sprintf("\nTotal: %d\n", len(r.Keys)))

	return buffer.String()
}

type EntryResult struct {
	Key   string   `json:"key"`
	Keys  []string `json:"keys,omitempty"`
	Value string   `json:"value,omitempty"`
	Error string   `json:"error,omitempty"`
}

type EntriesResult struct {
	Address string        `json:"address"`
	At      string        `json:"at"`
	Entries []EntryResult `json:"entries"`
}

func (r *EntriesResult) GetOutput() string {
	var buffer bytes.Buffer

	rows := make([]string, 0, len(r.Entries)+1)
	rows = append(rows, "KEY|VALUE")

	failed := 0

	for _, e := range r.Entries {
		value := e.Value
		if e.Error != "" {
			value = "error: " + e.Error
			failed++
		}

		rows = append(rows, fmt.Sprintf("%s|%s", e.Key, value))
	}

	buffer.WriteString(fmt.Sprintf("\n[%s AT %s]\n", r.Address, r.At))
	buffer.WriteString(helper.FormatList(rows))
	buffer.WriteString("\n")
	buffer.WriteString(fmt.Sprintf("\nTotal: %d, unreadable: %d\n", len(r.Entries), failed))

	return buffer.String()
}
