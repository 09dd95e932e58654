package utils

import (
	"bytes"
	"encoding/json"
	"fmt"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

// RepairJSON fixes common hand-editing mistakes in JSON seed files:
// trailing commas, single quotes, unquoted keys and unclosed brackets.
func RepairJSON(malformed string) (string, error) {
	repaired, err := jsonrepair.RepairJSON(malformed)
	if err != nil {
		return "", fmt.Errorf("JSON_REPAIR_FAILED: %v", err)
	}
	return repaired, nil
}

// HJSONToJSON converts Hjson (comments, unquoted keys, optional commas) to standard JSON.
func HJSONToJSON(data []byte) ([]byte, error) {
	var result interface{}
	if err := hjson.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("HJSON_PARSE_ERROR: %v", err)
	}
	out, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("JSON_MARSHAL_ERROR: %v", err)
	}
	return out, nil
}

// DecodeHJSON unmarshals an Hjson document through its JSON form.
func DecodeHJSON(data []byte, v interface{}) error {
	converted, err := HJSONToJSON(data)
	if err != nil {
		return err
	}
	return decodeNumbers(converted, v)
}

// decodeNumbers unmarshals keeping numbers as json.Number so large integers survive.
func decodeNumbers(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

// SmartParse tries multiple parsing strategies in order:
// 1. Standard JSON
// 2. JSON repair
// 3. Hjson (most lenient)
func SmartParse(input []byte, v interface{}) error {
	if err := decodeNumbers(input, v); err == nil {
		return nil
	}

	if repaired, err := RepairJSON(string(input)); err == nil {
		if err := decodeNumbers([]byte(repaired), v); err == nil {
			return nil
		}
	}

	if converted, err := HJSONToJSON(input); err == nil {
		if err := decodeNumbers(converted, v); err == nil {
			return nil
		}
	}

	return fmt.Errorf("SMART_PARSE_FAILED: all parsing strategies failed for input")
}
