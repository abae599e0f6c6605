package contract

import (
	"fmt"

	"github.com/hyperledger/fabric-chaincode-go/shim"
)

// ledgerStore adapts the chaincode stub to surety.Store using composite keys.
//
// Fabric does not let a transaction read its own writes, so writes are also
// kept in an overlay that GetState and ScanState consult first. Keys created in
// the current transaction do not appear in scans.
type ledgerStore struct {
	stub    shim.ChaincodeStubInterface
	written map[string][]byte // nil value marks a delete
}

func newLedgerStore(stub shim.ChaincodeStubInterface) *ledgerStore {
	return &ledgerStore{stub: stub, written: make(map[string][]byte)}
}

func (l *ledgerStore) key(objectType string, attrs []string) (string, error) {
	key, err := l.stub.CreateCompositeKey(objectType, attrs)
	if err != nil {
		return "", fmt.Errorf("failed to create composite key for %s: %w", objectType, err)
	}
	return key, nil
}

func (l *ledgerStore) GetState(objectType string, attrs []string) ([]byte, error) {
	key, err := l.key(objectType, attrs)
	if err != nil {
		return nil, err
	}
	if v, ok := l.written[key]; ok {
		return v, nil
	}
	raw, err := l.stub.GetState(key)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return raw, nil
}

func (l *ledgerStore) PutState(objectType string, attrs []string, value []byte) error {
	key, err := l.key(objectType, attrs)
	if err != nil {
		return err
	}
	if err := l.stub.PutState(key, value); err != nil {
		return err
	}
	l.written[key] = value
	return nil
}

func (l *ledgerStore) DelState(objectType string, attrs []string) error {
	key, err := l.key(objectType, attrs)
	if err != nil {
		return err
	}
	if err := l.stub.DelState(key); err != nil {
		return err
	}
	l.written[key] = nil
	return nil
}

func (l *ledgerStore) ScanState(objectType string, partial []string, fn func(value []byte) error) error {
	resultsIterator, err := l.stub.GetStateByPartialCompositeKey(objectType, partial)
	if err != nil {
		return fmt.Errorf("failed to get %s iterator: %w", objectType, err)
	}
	defer resultsIterator.Close()

	for resultsIterator.HasNext() {
		queryResponse, err := resultsIterator.Next()
		if err != nil {
			return fmt.Errorf("failed to iterate %s records: %w", objectType, err)
		}
		value := queryResponse.Value
		if v, ok := l.written[queryResponse.Key]; ok {
			if v == nil {
				continue
			}
			value = v
		}
		if err := fn(value); err != nil {
			return err
		}
	}
	return nil
}
