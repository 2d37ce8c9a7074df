package client

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// rawFrame is an encoded protobuf message. The query client builds and parses the few Cosmos
// messages it needs field by field instead of depending on the generated chain types.
type rawFrame []byte

// rawCodec passes frames through unchanged. It reports itself as "proto" so the content subtype
// negotiated with the node stays application/grpc+proto.
type rawCodec struct{}

func (rawCodec) Marshal(v interface{}) ([]byte, error) {
	frame, ok := v.(*rawFrame)
	if !ok {
		return nil, fmt.Errorf("raw codec cannot marshal %T", v)
	}
	return *frame, nil
}

func (rawCodec) Unmarshal(data []byte, v interface{}) error {
	frame, ok := v.(*rawFrame)
	if !ok {
		return fmt.Errorf("raw codec cannot unmarshal into %T", v)
	}
	*frame = append((*frame)[:0], data...)
	return nil
}

func (rawCodec) Name() string {
	return "proto"
}

// messageBuilder appends protobuf fields in wire format.
type messageBuilder struct {
	b []byte
}

func (m *messageBuilder) string(num protowire.Number, v string) *messageBuilder {
	if v == "" {
		return m
	}
	m.b = protowire.AppendTag(m.b, num, protowire.BytesType)
	m.b = protowire.AppendString(m.b, v)
	return m
}

func (m *messageBuilder) uint64(num protowire.Number, v uint64) *messageBuilder {
	if v == 0 {
		return m
	}
	m.b = protowire.AppendTag(m.b, num, protowire.VarintType)
	m.b = protowire.AppendVarint(m.b, v)
	return m
}

func (m *messageBuilder) message(num protowire.Number, v []byte) *messageBuilder {
	m.b = protowire.AppendTag(m.b, num, protowire.BytesType)
	m.b = protowire.AppendBytes(m.b, v)
	return m
}

func (m *messageBuilder) frame() rawFrame {
	return m.b
}

// fieldVisitor receives every field of a message. value holds the payload of length delimited
// fields; varint holds the value of varint fields.
type fieldVisitor func(num protowire.Number, typ protowire.Type, value []byte, varint uint64) error

// walkMessage decodes the top level fields of b in order. Fields of other wire types are skipped.
func walkMessage(b []byte, visit fieldVisitor) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("invalid field tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("invalid varint field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
			if err := visit(num, typ, nil, v); err != nil {
				return err
			}
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return fmt.Errorf("invalid length delimited field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
			if err := visit(num, typ, v, 0); err != nil {
				return err
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("invalid field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return nil
}
