//go:build zkvm

// Command guest is the zkVM program: it reads a serialized Payload
// from the zkVM's input channel, verifies the header chain and every
// reward block's receipt and fee-summary preimage, and commits the
// packed per-asset totals as the proof's public output.
//
// Built only under the zkvm build tag so host-side tooling and tests
// never pull in zkVM syscall plumbing.
package main

import (
	"github.com/ProjectZKM/Ziren/crates/go-runtime/zkvm_runtime"

	"santaclaus/aggregator"
	"santaclaus/payload"
)

func main() {
	data := zkvm_runtime.ReadVec()

	p, err := payload.Decode(data)
	if err != nil {
		panic(err)
	}

	result, err := aggregator.Run(p)
	if err != nil {
		panic(err)
	}

	zkvm_runtime.Commit(result.Encode())
}
