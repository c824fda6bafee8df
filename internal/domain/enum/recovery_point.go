package enum

import "database/sql/driver"

// RecoveryPoint names the next stage to execute for an idempotency key. It
// starts at "started", advances only forward through the stage chain an
// operation declares, and ends at "finished" once a cached response exists.
type RecoveryPoint string

const (
	RecoveryPointStarted         RecoveryPoint = "started"
	RecoveryPointReturnRequested RecoveryPoint = "return_requested"
	RecoveryPointFinished        RecoveryPoint = "finished"
)

func (p RecoveryPoint) String() string {
	return string(p)
}

// IsTerminal reports whether no further stages run for this point.
func (p RecoveryPoint) IsTerminal() bool {
	return p == RecoveryPointFinished
}

func (p RecoveryPoint) Value() (driver.Value, error) {
	return string(p), nil
}

func (p *RecoveryPoint) Scan(value interface{}) error {
	if value == nil {
		*p = RecoveryPointStarted
		return nil
	}
	switch v := value.(type) {
	case string:
		*p = RecoveryPoint(v)
	case []byte:
		*p = RecoveryPoint(string(v))
	}
	return nil
}
