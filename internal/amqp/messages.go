package amqp

import (
	"encoding/json"
	"time"
)

// ExportRequestMessage asks the worker to compile the deductible-transaction
// export for one year and push it to the configured sheet. The worker
// recompiles from source; the message carries no rows.
type ExportRequestMessage struct {
	Year        int       `json:"year"`
	RequestedBy string    `json:"requested_by"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewExportRequestMessage(year int, requestedBy string) *ExportRequestMessage {
	return &ExportRequestMessage{Year: year, RequestedBy: requestedBy, Timestamp: time.Now()}
}

func (m *ExportRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExportRequestMessageFromJSON(data []byte) (*ExportRequestMessage, error) {
	var msg ExportRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// CategorizationAppliedMessage announces one durable categorization
// decision, manual or automatic. Consumers fetch details from the store;
// the event only identifies the transaction.
type CategorizationAppliedMessage struct {
	ExternalID string    `json:"external_id"`
	CategoryID int64     `json:"category_id"`
	Provenance string    `json:"provenance"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewCategorizationAppliedMessage(externalID string, categoryID int64, provenance string) *CategorizationAppliedMessage {
	return &CategorizationAppliedMessage{
		ExternalID: externalID,
		CategoryID: categoryID,
		Provenance: provenance,
		Timestamp:  time.Now(),
	}
}

func (m *CategorizationAppliedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func CategorizationAppliedMessageFromJSON(data []byte) (*CategorizationAppliedMessage, error) {
	var msg CategorizationAppliedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
