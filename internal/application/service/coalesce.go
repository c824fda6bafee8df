package service

// clampRefund normalizes a caller-supplied refund override. A negative
// amount is clamped to zero; nil means the caller supplied no override and
// none is stored.
func clampRefund(refund *int64) *int64 {
	if refund == nil {
		return nil
	}
	amount := *refund
	if amount < 0 {
		amount = 0
	}
	return &amount
}

// resolveNotificationFlag picks the effective no-notification flag for a
// return: the caller's override when present, the order's default otherwise.
func resolveNotificationFlag(override *bool, orderDefault bool) bool {
	if override != nil {
		return *override
	}
	return orderDefault
}
