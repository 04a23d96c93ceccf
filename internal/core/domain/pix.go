package domain

import (
	"fmt"
	"time"
)

// PixCharge is a simulated PIX charge. Payload is a deterministic stand-in
// for a real BR Code copy-and-paste string; no PSP is involved.
type PixCharge struct {
	TxID      string    `json:"tx_id"`
	Payload   string    `json:"payload"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

// NewPixCharge builds the simulated charge for an order total.
func NewPixCharge(txID string, amount int64, now time.Time) PixCharge {
	return PixCharge{
		TxID:      txID,
		Payload:   fmt.Sprintf("00020126580014br.gov.bcb.pix0136%s5204000053039865406%d.%02d5802BR", txID, amount/100, amount%100),
		Amount:    amount,
		CreatedAt: now,
	}
}
