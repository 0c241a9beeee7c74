package store

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/roach88/modlayers/internal/ir"
	"github.com/roach88/modlayers/internal/keys"
)

// marshalAddrs stores addresses as a canonical JSON array of "row,col".
func marshalAddrs(addrs []keys.KeyAddr) (string, error) {
	arr := make([]any, len(addrs))
	for i, a := range addrs {
		arr[i] = a.String()
	}
	data, err := ir.MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("marshal addrs: %w", err)
	}
	return string(data), nil
}

func unmarshalAddrs(data string) ([]keys.KeyAddr, error) {
	var strs []string
	if err := json.Unmarshal([]byte(data), &strs); err != nil {
		return nil, fmt.Errorf("unmarshal addrs: %w", err)
	}
	var out []keys.KeyAddr
	for _, s := range strs {
		a, err := keys.ParseAddr(s)
		if err != nil {
			return nil, fmt.Errorf("unmarshal addrs: %w", err)
		}
		out = append(out, a)
	}
	return out, nil
}

// marshalKeys stores keys by name so the log stays readable.
func marshalKeys(ks []keys.Key) (string, error) {
	arr := make([]any, len(ks))
	for i, k := range ks {
		arr[i] = k.String()
	}
	data, err := ir.MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("marshal keys: %w", err)
	}
	return string(data), nil
}

func unmarshalKeys(data string) ([]keys.Key, error) {
	var names []string
	if err := json.Unmarshal([]byte(data), &names); err != nil {
		return nil, fmt.Errorf("unmarshal keys: %w", err)
	}
	var out []keys.Key
	for _, n := range names {
		k, err := keys.ParseKey(n)
		if err != nil {
			return nil, fmt.Errorf("unmarshal keys: %w", err)
		}
		out = append(out, k)
	}
	return out, nil
}

func marshalReport(r [8]byte) string { return hex.EncodeToString(r[:]) }

func unmarshalReport(data string) ([8]byte, error) {
	var r [8]byte
	b, err := hex.DecodeString(data)
	if err != nil {
		return r, fmt.Errorf("unmarshal report: %w", err)
	}
	if len(b) != len(r) {
		return r, fmt.Errorf("unmarshal report: got %d bytes, want %d", len(b), len(r))
	}
	copy(r[:], b)
	return r, nil
}
