package chain

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ErrEventMissing means a mined receipt lacks the event its method emits.
var ErrEventMissing = errors.New("chain receipt is missing the expected event")

const (
	EventPropertyRegistered = "PropertyRegistered"
	EventTransferInitiated  = "TransferInitiated"
)

var registryABI = sync.OnceValues(RegistryABI)

func registryEvent(name string) (abi.Event, error) {
	parsed, err := registryABI()
	if err != nil {
		return abi.Event{}, fmt.Errorf("parse registry abi: %w", err)
	}
	ev, ok := parsed.Events[name]
	if !ok {
		return abi.Event{}, fmt.Errorf("registry abi has no %s event", name)
	}
	return ev, nil
}

func indexedInputs(ev abi.Event) abi.Arguments {
	var out abi.Arguments
	for _, in := range ev.Inputs {
		if in.Indexed {
			out = append(out, in)
		}
	}
	return out
}

// EmittedID returns the uint256 the contract put in the indexed field of
// the first matching event log.
func EmittedID(logs []*types.Log, event, field string) (int64, error) {
	ev, err := registryEvent(event)
	if err != nil {
		return 0, err
	}
	indexed := indexedInputs(ev)
	for _, l := range logs {
		if l == nil || len(l.Topics) != len(indexed)+1 || l.Topics[0] != ev.ID {
			continue
		}
		fields := make(map[string]any, len(indexed))
		if err := abi.ParseTopicsIntoMap(fields, indexed, l.Topics[1:]); err != nil {
			return 0, fmt.Errorf("decode %s: %w", event, err)
		}
		id, ok := fields[field].(*big.Int)
		if !ok {
			return 0, fmt.Errorf("%s has no uint256 field %q", event, field)
		}
		if id.Sign() <= 0 || !id.IsInt64() {
			return 0, fmt.Errorf("%s: %s %s out of range", event, field, id)
		}
		return id.Int64(), nil
	}
	return 0, fmt.Errorf("%s: %w", event, ErrEventMissing)
}

// EventLog encodes values the way the contract emits event: indexed inputs
// become topics, the rest are ABI-packed into Data.
func EventLog(contract common.Address, event string, values ...any) (*types.Log, error) {
	ev, err := registryEvent(event)
	if err != nil {
		return nil, err
	}
	if len(values) != len(ev.Inputs) {
		return nil, fmt.Errorf("%s takes %d values, got %d", event, len(ev.Inputs), len(values))
	}

	topics := []common.Hash{ev.ID}
	var data []any
	for i, in := range ev.Inputs {
		if !in.Indexed {
			data = append(data, values[i])
			continue
		}
		topic, err := abi.MakeTopics([]any{values[i]})
		if err != nil {
			return nil, fmt.Errorf("encode %s.%s: %w", event, in.Name, err)
		}
		topics = append(topics, topic[0][0])
	}
	packed, err := ev.Inputs.NonIndexed().Pack(data...)
	if err != nil {
		return nil, fmt.Errorf("encode %s data: %w", event, err)
	}
	return &types.Log{Address: contract, Topics: topics, Data: packed}, nil
}
