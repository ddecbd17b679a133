package extrinsic

import (
	"fmt"

	"github.com/0xPolygon/substrate-client/metadata"
	"github.com/0xPolygon/substrate-client/scale"
)

// Call is a resolved dispatchable: pallet and call index followed by the
// already encoded arguments
type Call struct {
	PalletIndex uint8
	CallIndex   uint8
	Args        []byte
}

func NewCall(pallet, call uint8, args []byte) Call {
	return Call{PalletIndex: pallet, CallIndex: call, Args: args}
}

// NewDynamicCall resolves a call by name and encodes its arguments with the
// registry. Arguments are matched to the call fields by name when named,
// otherwise by position.
func NewDynamicCall(reg *metadata.Registry, pallet, call string, args ...metadata.NamedValue) (Call, error) {
	desc, err := reg.ResolveCall(pallet, call)
	if err != nil {
		return Call{}, err
	}

	if len(args) != len(desc.Fields) {
		return Call{}, fmt.Errorf("%s.%s takes %d arguments, got %d", pallet, call, len(desc.Fields), len(args))
	}

	e := scale.AcquireEncoder()
	defer scale.ReleaseEncoder(e)

	for i, f := range desc.Fields {
		arg := args[i].Value

		if name := f.FieldName(); name != "" && args[i].Name != "" && args[i].Name != name {
			named, ok := metadata.NamedComposite(args...).Field(name)
			if !ok {
				return Call{}, fmt.Errorf("%s.%s: missing argument %s", pallet, call, name)
			}

			arg = named
		}

		if err := reg.EncodeValue(e, f.Type, arg); err != nil {
			return Call{}, fmt.Errorf("%s.%s: argument %s: %w", pallet, call, f.FieldName(), err)
		}
	}

	return NewCall(desc.PalletIndex, desc.CallIndex, e.CopyBytes()), nil
}

func (c Call) EncodeScale(e *scale.Encoder) error {
	e.PushByte(c.PalletIndex)
	e.PushByte(c.CallIndex)
	e.Write(c.Args)

	return nil
}

// Encoded returns pallet index, call index and arguments
func (c Call) Encoded() []byte {
	out := make([]byte, 0, 2+len(c.Args))
	out = append(out, c.PalletIndex, c.CallIndex)

	return append(out, c.Args...)
}

func (c Call) String() string {
	return fmt.Sprintf("call(%d, %d, %d bytes)", c.PalletIndex, c.CallIndex, len(c.Args))
}

func decodeCall(b []byte) (Call, error) {
	if len(b) < 2 {
		return Call{}, &scale.Error{Op: "decode call", Err: scale.ErrTruncated}
	}

	args := make([]byte, len(b)-2)
	copy(args, b[2:])

	return NewCall(b[0], b[1], args), nil
}
