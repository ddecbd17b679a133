package tx

import (
	"bytes"
	"fmt"

	"github.com/0xPolygon/substrate-client/command/helper"
)

type SubmitResult struct {
	Hash           string   `json:"hash"`
	Block          string   `json:"block,omitempty"`
	ExtrinsicIndex *uint32  `json:"extrinsicIndex,omitempty"`
	Events         []string `json:"events,omitempty"`
}

func (r *SubmitResult) GetOutput() string {
	var buffer bytes.Buffer

	buffer.WriteString("\n[TRANSACTION SUBMITTED]\n")

	kv := []string{fmt.Sprintf("Hash|%s", r.Hash)}
	if r.Block != "" {
		kv = append(kv, fmt.Sprintf("Block|%s", r.Block))
	}

	if r.ExtrinsicIndex != nil {
		kv = append(kv, fmt.Sprintf("Extrinsic index|%d", *r.ExtrinsicIndex))
	}

	buffer.WriteString(helper.FormatKV(kv))
	buffer.WriteString("\n")

	if len(r.Events) > 0 {
		buffer.WriteString("\n[EVENTS]\n")
		buffer.WriteString(helper.FormatList(r.Events))
		buffer.WriteString("\n")
	}

	return buffer.String()
}

type StatusResult struct {
	Hash   string `json:"hash"`
	Status string `json:"status"`
}

func (r *StatusResult) GetOutput() string {
	var buffer bytes.Buffer

	buffer.WriteString("\n[TRANSACTION STATUS]\n")
	buffer.WriteString(helper.FormatKV([]string{
		fmt.Sprintf("Hash|%s", r.Hash),
		fmt.Sprintf("Status|%s", r.Status),
	}))

	return buffer.String()
}

type ValidateResult struct {
	Hash      string `json:"hash"`
	Validity  string `json:"validity"`
	Priority  uint64 `json:"priority,omitempty"`
	Longevity uint64 `json:"longevity,omitempty"`
	Requires  int    `json:"requires,omitempty"`
	Provides  int    `json:"provides,omitempty"`
	Propagate bool   `json:"propagate,omitempty"`
}

func (r *ValidateResult) GetOutput() string {
	var buffer bytes.Buffer

	buffer.WriteString("\n[TRANSACTION VALIDITY]\n")

	kv := []string{
		fmt.Sprintf("Hash|%s", r.Hash),
		fmt.Sprintf("Validity|%s", r.Validity),
	}

	if r.Validity == "Valid" {
		kv = append(kv,
			fmt.Sprintf("Priority|%d", r.Priority),
			fmt.Sprintf("Longevity|%d", r.Longevity),
			fmt.Sprintf("Requires|%d", r.Requires),
			fmt.Sprintf("Provides|%d", r.Provides),
			fmt.Sprintf("Propagate|%t", r.Propagate),
		)
	}

	buffer.WriteString(helper.FormatKV(kv))
	buffer.WriteString("\n")

	return buffer.String()
}

type FeeResult struct {
	Hash         string `json:"hash"`
	At           string `json:"at"`
	TipPolicy    string `json:"tipPolicy"`
	PartialFee   string `json:"partialFee"`
	InclusionFee string `json:"inclusionFee"`
	Diff         string `json:"diff"`
}

func (r *FeeResult) GetOutput() string {
	var buffer bytes.Buffer

	buffer.WriteString("\n[FEE ESTIMATE]\n")
	buffer.WriteString(helper.FormatKV([]string{
		fmt.Sprintf("Hash|%s", r.Hash),
		fmt.Sprintf("At block|%s", r.At),
		fmt.Sprintf("Tip policy|%s", r.TipPolicy),
		fmt.Sprintf("Partial fee|%s", r.PartialFee),
		fmt.Sprintf("Inclusion fee|%s", r.InclusionFee),
		fmt.Sprintf("Difference|%s", r.Diff),
	}))
	buffer.WriteString("\n")

	return buffer.String()
}
