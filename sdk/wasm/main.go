// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

//go:build js && wasm

// Package main provides WASM bindings for gmorph
//
// Exports to JavaScript under the global "gmorph":
// - generateKeys() -> {keyPair, fingerprint}
// - encrypt(value, keyPair) -> ciphertext
// - decrypt(ciphertext, keyPair) -> value
// - evaluate(op, ...ciphertexts) -> ciphertext
//
// Keys and ciphertexts are base64 strings. Failures return "error: ...".
package main

import (
	"syscall/js"

	"github.com/luxfi/gmorph"
	"github.com/luxfi/gmorph/sdk"
)

func errorValue(err error) js.Value {
	return js.ValueOf("error: " + err.Error())
}

func generateKeys(this js.Value, args []js.Value) interface{} {
	keys, err := sdk.GenerateKeys()
	if err != nil {
		return errorValue(err)
	}
	return map[string]interface{}{
		"keyPair":     keys.KeyPair,
		"fingerprint": keys.Fingerprint,
	}
}

// encrypt
// Args: value (number), keyPair (string)
func encrypt(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf("error: requires (value, keyPair)")
	}
	ct, err := sdk.Encrypt(uint32(args[0].Int()), args[1].String())
	if err != nil {
		return errorValue(err)
	}
	return js.ValueOf(ct)
}

// decrypt
// Args: ciphertext (string), keyPair (string)
func decrypt(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf("error: requires (ciphertext, keyPair)")
	}
	v, err := sdk.Decrypt(args[0].String(), args[1].String())
	if err != nil {
		return errorValue(err)
	}
	return js.ValueOf(int64(v))
}

// evaluate
// Args: op (string), ciphertexts (string...)
func evaluate(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf("error: requires (op, ciphertext...)")
	}
	operands := make([]string, len(args)-1)
	for i, a := range args[1:] {
		operands[i] = a.String()
	}
	ct, err := sdk.Evaluate(args[0].String(), operands...)
	if err != nil {
		return errorValue(err)
	}
	return js.ValueOf(ct)
}

func getVersion(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(gmorph.Version)
}

func main() {
	js.Global().Set("gmorph", map[string]interface{}{
		"version":      js.FuncOf(getVersion),
		"generateKeys": js.FuncOf(generateKeys),
		"encrypt":      js.FuncOf(encrypt),
		"decrypt":      js.FuncOf(decrypt),
		"evaluate":     js.FuncOf(evaluate),
	})

	select {}
}
