// Package codec provides the serialization used by byte oriented cache
// backends to store catalog payloads.
//
// Package codec 提供面向字节的缓存后端存储目录数据时使用的序列化实现。
package codec

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"
)

// Codec names accepted by Get.
const (
	JSON = "json"
	Gob  = "gob"
)

// Codec defines the interface for encoding and decoding cached values.
//
// Codec 定义了编码和解码缓存值的接口。
type Codec interface {
	// Marshal serializes a value into bytes.
	//
	// Marshal 将值序列化为字节。
	//
	// Parameters:
	//   - value: The value to serialize
	//
	// Returns:
	//   - []byte: The serialized bytes
	//   - error: An error if serialization fails
	Marshal(value any) ([]byte, error)

	// Unmarshal deserializes bytes into the value pointed to by value.
	//
	// Unmarshal 将字节反序列化到value指向的值中。
	//
	// Parameters:
	//   - data: The bytes to deserialize
	//   - value: A pointer to the target value
	//
	// Returns:
	//   - error: An error if deserialization fails
	Unmarshal(data []byte, value any) error

	// Name returns the name the codec is registered under.
	//
	// Name 返回编解码器注册的名称。
	Name() string
}

// JSONCodec encodes values as JSON, the format the catalog API speaks.
//
// JSONCodec 将值编码为JSON，即目录API使用的格式。
type JSONCodec struct{}

// Marshal serializes a value into JSON bytes.
func (JSONCodec) Marshal(value any) ([]byte, error) {
	return json.Marshal(value)
}

// Unmarshal deserializes JSON bytes into value.
func (JSONCodec) Unmarshal(data []byte, value any) error {
	return json.Unmarshal(data, value)
}

// Name returns "json".
func (JSONCodec) Name() string { return JSON }

// GobCodec encodes values with encoding/gob. Prices survive the round trip
// because decimal.Decimal implements GobEncoder.
//
// GobCodec 使用encoding/gob编码值。decimal.Decimal 实现了GobEncoder，价格可以完整往返。
type GobCodec struct{}

// Marshal serializes a value into gob bytes.
func (GobCodec) Marshal(value any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(value); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal deserializes gob bytes into value.
func (GobCodec) Unmarshal(data []byte, value any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(value)
}

// Name returns "gob".
func (GobCodec) Name() string { return Gob }

// Default returns the JSON codec.
//
// Default 返回JSON编解码器。
func Default() Codec {
	return JSONCodec{}
}

// Get returns a codec by name. An empty name selects the default.
//
// Get 通过名称返回编解码器，空名称选择默认编解码器。
//
// Parameters:
//   - name: "json", "gob" or ""
//
// Returns:
//   - Codec: The requested codec
//   - error: An error if the codec name is unknown
func Get(name string) (Codec, error) {
	switch name {
	case "", JSON:
		return JSONCodec{}, nil
	case Gob:
		return GobCodec{}, nil
	default:
		return nil, fmt.Errorf("codec: unknown codec %q", name)
	}
}
