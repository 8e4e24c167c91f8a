// prototool 在JSON和protobuf二进制(hex或base64)之间转换Kafka通知主题上的通知信封
package main

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go-relief-hub/internal/notify"

	"google.golang.org/protobuf/encoding/protojson"
	pbproto "google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// 与websocket推送的结构相同
type envelopeJSON struct {
	notify.Recipient
	notify.Payload
}

func main() {
	mode := flag.String("mode", "encode", "Mode: 'encode' or 'decode'")
	inputFormat := flag.String("in", "hex", "Input format for decode: 'hex' or 'base64'")
	outputFormat := flag.String("out", "hex", "Output format for encode: 'hex' or 'base64'")
	raw := flag.Bool("raw", false, "Decode: print the underlying protobuf Struct instead of the envelope")
	flag.Parse()

	inputData, err := io.ReadAll(os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading stdin: %v\n", err)
		os.Exit(1)
	}
	inputStr := strings.TrimSpace(string(inputData))

	var out string
	switch *mode {
	case "encode":
		out, err = encode(inputStr, *outputFormat)
	case "decode":
		out, err = decode(inputStr, *inputFormat, *raw)
	default:
		err = fmt.Errorf("invalid mode: %s. Use 'encode' or 'decode'", *mode)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(out)
}

// Encodes JSON input to Protobuf binary (Hex or Base64)
func encode(jsonInput, outputFormat string) (string, error) {
	var env envelopeJSON
	if err := json.Unmarshal([]byte(jsonInput), &env); err != nil {
		return "", fmt.Errorf("unmarshal JSON envelope: %w", err)
	}
	if env.UserID == 0 && env.GroupID == 0 {
		return "", fmt.Errorf("envelope needs user_id or group_id")
	}

	binaryData, err := notify.EncodeEnvelope(env.Recipient, env.Payload)
	if err != nil {
		return "", err
	}

	switch outputFormat {
	case "hex":
		return hex.EncodeToString(binaryData), nil
	case "base64":
		return base64.StdEncoding.EncodeToString(binaryData), nil
	default:
		return "", fmt.Errorf("invalid output format: %s. Use 'hex' or 'base64'", outputFormat)
	}
}

// Decodes Protobuf binary (Hex or Base64) input to JSON
func decode(input, inputFormat string, raw bool) (string, error) {
	var binaryData []byte
	var err error
	switch inputFormat {
	case "hex":
		binaryData, err = hex.DecodeString(input)
	case "base64":
		binaryData, err = base64.StdEncoding.DecodeString(input)
	default:
		return "", fmt.Errorf("invalid input format: %s. Use 'hex' or 'base64'", inputFormat)
	}
	if err != nil {
		return "", fmt.Errorf("decode input (%s): %w", inputFormat, err)
	}

	if raw {
		var st structpb.Struct
		if err := pbproto.Unmarshal(binaryData, &st); err != nil {
			return "", fmt.Errorf("unmarshal protobuf: %w", err)
		}
		out, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(&st)
		if err != nil {
			return "", err
		}
		return string(out), nil
	}

	to, p, err := notify.DecodeEnvelope(binaryData)
	if err != nil {
		return "", err
	}
	out, err := json.MarshalIndent(envelopeJSON{Recipient: to, Payload: p}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal JSON: %w", err)
	}
	return string(out), nil
}
