package session

import (
	"os"

	"github.com/mdp/qrterminal/v3"
)

// TerminalQR renders the pairing challenge in the terminal, for operators
// running the process interactively.
type TerminalQR struct{}

func NewTerminalQR() TerminalQR {
	return TerminalQR{}
}

func (TerminalQR) PresentQR(code string) {
	qrterminal.GenerateHalfBlock(code, qrterminal.L, os.Stdout)
}
