package wallet

import (
	"context"
	"fmt"
	"strconv"

	"github.com/minibit/minibit/internal/instruction"
)

// Execute dispatches wallet instructions from the front-end. Verbs addressed
// to other subsystems are ignored; argument problems are reported to the
// user, never fatal.
func (w *Wallet) Execute(_ context.Context, inst instruction.Instruction) {
	if inst.Target != instruction.TargetWallet {
		return
	}

	switch inst.Verb {
	case instruction.VerbNewPrivateKey:
		w.cliNewPrivateKey()
	case instruction.VerbGetAddress:
		w.cliGetAddress(inst)
	case instruction.VerbShowUTXO:
		w.cliShowUTXO()
	case instruction.VerbSend:
		w.cliSend(inst)
	}
}

func (w *Wallet) cliNewPrivateKey() {
	address, err := w.NewPrivateKey()
	if err != nil {
		fmt.Println("Error: failed storing generated private key")
		return
	}
	fmt.Printf("New key stored, address: %s\n", address)
}

func (w *Wallet) cliGetAddress(inst instruction.Instruction) {
	index := 0
	if len(inst.Args) > 0 {
		parsed, err := strconv.Atoi(inst.Args[0])
		if err != nil {
			fmt.Println("Please enter a valid index")
			return
		}
		index = parsed
	}

	address, err := w.Address(index)
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		return
	}
	fmt.Printf("Address: %s\n", address)
}

func (w *Wallet) cliShowUTXO() {
	outputs, err := w.UnspentOutputs()
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		return
	}
	for _, utxo := range outputs {
		fmt.Println(utxo)
	}
}

func (w *Wallet) cliSend(inst instruction.Instruction) {
	if len(inst.Args) < 2 {
		fmt.Println("Usage: send <amount> <address>")
		return
	}

	amount, err := strconv.ParseFloat(inst.Args[0], 32)
	if err != nil {
		fmt.Println("Please provide a valid amount")
		return
	}

	available, err := w.UnspentOutputs()
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		return
	}

	tx, err := w.Spend(float32(amount), inst.Args[1], available)
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		return
	}

	if err := w.SignTransaction(tx); err != nil {
		fmt.Printf("Error: %s\n", err)
		return
	}
	tx.ComputeHash()

	if w.submit != nil && !w.submit.Submit(*tx) {
		fmt.Println("Transaction rejected by the pool")
		return
	}
	fmt.Print(tx.String())
}
