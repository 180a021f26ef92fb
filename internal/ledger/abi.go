package ledger

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const contractABI = `[
  {"type":"function","name":"nonces","stateMutability":"view",
   "inputs":[{"name":"player","type":"address"}],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"bestTimeMs","stateMutability":"view",
   "inputs":[{"name":"player","type":"address"}],
   "outputs":[{"name":"","type":"uint32"}]},
  {"type":"function","name":"checkInStreakDays","stateMutability":"view",
   "inputs":[{"name":"player","type":"address"}],
   "outputs":[{"name":"","type":"uint32"}]},
  {"type":"function","name":"canCheckIn","stateMutability":"view",
   "inputs":[{"name":"player","type":"address"}],
   "outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"checkInPrice","stateMutability":"view",
   "inputs":[],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"submitScorePrice","stateMutability":"view",
   "inputs":[],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"checkIn","stateMutability":"payable",
   "inputs":[],
   "outputs":[]},
  {"type":"function","name":"submitScore","stateMutability":"payable",
   "inputs":[
     {"name":"timeMs","type":"uint32"},
     {"name":"v","type":"uint8"},
     {"name":"r","type":"bytes32"},
     {"name":"s","type":"bytes32"}],
   "outputs":[]}
]`

// ContractABI is the subset of the game contract this module talks to.
var ContractABI = mustParseABI(contractABI)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic("ledger: invalid contract abi: " + err.Error())
	}
	return parsed
}
