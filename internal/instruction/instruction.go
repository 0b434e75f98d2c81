// Package instruction defines the typed command contract between the
// interactive front-end and the wallet and miner subsystems, plus the
// free-text parser that produces it.
package instruction

import (
	"context"
	"strings"
)

// Target selects the subsystem an instruction is addressed to.
type Target int

const (
	TargetNone Target = iota
	TargetWallet
	TargetMiner
)

// Verb is the closed set of commands the subsystems understand.
type Verb int

const (
	VerbNone Verb = iota

	// Wallet verbs.
	VerbNewPrivateKey
	VerbGetAddress
	VerbShowUTXO
	VerbSend

	// Miner verbs.
	VerbStart
	VerbStop
	VerbShowTxPool
)

// Instruction is one parsed command. Unknown input maps to TargetNone rather
// than an error; subsystems ignore verbs outside their own set.
type Instruction struct {
	Target Target
	Verb   Verb
	Args   []string
	Flags  map[rune]bool
}

// Executor is implemented by the wallet and the miner.
type Executor interface {
	Execute(ctx context.Context, inst Instruction)
}

var verbs = map[string]struct {
	target Target
	verb   Verb
}{
	"newprivatekey": {TargetWallet, VerbNewPrivateKey},
	"getaddress":    {TargetWallet, VerbGetAddress},
	"showutxo":      {TargetWallet, VerbShowUTXO},
	"send":          {TargetWallet, VerbSend},

	"start":      {TargetMiner, VerbStart},
	"stop":       {TargetMiner, VerbStop},
	"showtxpool": {TargetMiner, VerbShowTxPool},
}

// Parse turns one input line into an Instruction. The first word selects the
// target and verb; following words are positional arguments until a word
// containing "--", after which every non-dash character becomes a flag.
// Blank lines parse to ok == false.
func Parse(line string) (Instruction, bool) {
	words := strings.Fields(line)
	if len(words) == 0 {
		return Instruction{}, false
	}

	inst := Instruction{Flags: make(map[rune]bool)}
	if entry, ok := verbs[words[0]]; ok {
		inst.Target = entry.target
		inst.Verb = entry.verb
	}

	flagsStarted := false
	for _, word := range words[1:] {
		if strings.Contains(word, "--") {
			flagsStarted = true
		}

		if flagsStarted {
			for _, c := range word {
				if c != '-' {
					inst.Flags[c] = true
				}
			}
		} else {
			inst.Args = append(inst.Args, word)
		}
	}

	return inst, true
}
