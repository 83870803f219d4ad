package blocks

// ValidPredecessor reports whether a block of shape next may legally
// follow a block of shape prev on the same account chain. State blocks
// generalize every legacy shape and so may follow anything; legacy
// shapes may only follow other legacy shapes, never a State block,
// since an account that has upgraded to State never reverts.
func ValidPredecessor(next, prev Type) bool {
	if next == TypeState {
		return true
	}
	switch prev {
	case TypeOpen, TypeSend, TypeReceive, TypeChange:
		return true
	default:
		return false
	}
}
