package utils

import (
	"encoding/json"

	"go.uber.org/zap"
)

// UnmarshalAndHandle decodifica el payload al tipo esperado y, si encaja,
// invoca el handler. Un payload malformado se registra y se descarta.
func UnmarshalAndHandle[T any](log *zap.Logger, data json.RawMessage, handler func(T)) {
	var fact T
	if err := json.Unmarshal(data, &fact); err != nil {
		log.Warn("Failed to unmarshal event payload", zap.Error(err))
		return
	}
	handler(fact)
}
