package ledger

import "time"

func (l *CapacityLedger) SetTimeNow(f func() time.Time) { l.timeNow = f }

func (l *OrderLedger) SetTimeNow(f func() time.Time) { l.timeNow = f }
