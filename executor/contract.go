package executor

import "math"

// checkContract verifies that the rollup's response is the expected next
// block number for the relevant commitment side. It operates purely on
// numbers; hash/parent linkage is the rollup's responsibility.
func checkContract(side string, current, actual uint64) error {
	if current == math.MaxUint64 {
		return wrapErr(KindContract, "current block number cannot be incremented",
			&ContractViolation{Side: side, Current: current, Expected: current, Actual: actual})
	}
	expected := current + 1
	if actual != expected {
		return wrapErr(KindContract, "rollup returned unexpected block number",
			&ContractViolation{Side: side, Current: current, Expected: expected, Actual: actual})
	}
	return nil
}
