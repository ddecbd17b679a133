package metadata

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/0xPolygon/substrate-client/command/helper"
)

type PalletResult struct {
	Name    string `json:"name"`
	Index   uint8  `json:"index"`
	Calls   bool   `json:"calls"`
	Events  bool   `json:"events"`
	Errors  bool   `json:"errors"`
	Storage int    `json:"storage"`
}

type PalletsResult struct {
	SpecName    string         `json:"specName"`
	SpecVersion uint32         `json:"specVersion"`
	Pallets     []PalletResult `json:"pallets"`
}

func (r *PalletsResult) GetOutput() string {
	var buffer bytes.Buffer

	rows := make([]string, 0, len(r.Pallets)+1)
	rows = append(rows, "INDEX|NAME|CALLS|EVENTS|ERRORS|STORAGE ENTRIES")

	for _, p := range r.Pallets {
		rows = append(rows, fmt.Sprintf("%d|%s|%t|%t|%t|%d", p.Index, p.Name, p.Calls, p.Events, p.Errors, p.Storage))
	}

	buffer.WriteString(fmt.Sprintf("\n[PALLETS OF %s v%d]\n", r.SpecName, r.SpecVersion))
	buffer.WriteString(helper.FormatList(rows))
	buffer.WriteString("\n")

	return buffer.String()
}

type ErrorResult struct {
	Kind        string   `json:"kind"`
	Reason      string   `json:"reason,omitempty"`
	Pallet      string   `json:"pallet,omitempty"`
	PalletIndex *uint8   `json:"palletIndex,omitempty"`
	Error       string   `json:"error,omitempty"`
	ErrorIndex  *uint8   `json:"errorIndex,omitempty"`
	Docs        []string `json:"docs,omitempty"`
	Message     string   `json:"message"`
}

func (r *ErrorResult) GetOutput() string {
	var buffer bytes.Buffer

	kv := []string{fmt.Sprintf("Kind|%s", r.Kind)}

	if r.Reason != "" {
		kv = append(kv, fmt.Sprintf("Reason|%s", r.Reason))
	}

	if r.Pallet != "" {
		kv = append(kv,
			fmt.Sprintf("Pallet|%s (%d)", r.Pallet, *r.PalletIndex),
			fmt.Sprintf("Error|%s (%d)", r.Error, *r.ErrorIndex),
			fmt.Sprintf("Docs|%s", strings.Join(r.Docs, " ")),
		)
	}

	buffer.WriteString("\n[DISPATCH ERROR]\n")
	buffer.WriteString(helper.FormatKV(kv))
	buffer.WriteString("\n")

	return buffer.String()
}
