package chain

// Difficulty Oracle (C4) parameters, grounded on
// original_source/src/blockchain.rs's get_dynamic_difficulty.
const (
	MinDifficulty    = 1
	MaxDifficulty    = 7
	DifficultyWindow = 10
)

// DynamicDifficulty computes the difficulty the next block must satisfy,
// given the current chain and its configured target block time. It is a
// pure function of the chain tail: starting from the tip's recorded
// difficulty, it nudges by one step toward the target average block time
// measured over the last DifficultyWindow blocks, then clamps to
// [MinDifficulty, MaxDifficulty].
func DynamicDifficulty(chain []Block, targetBlockTime int64) uint32 {
	if len(chain) <= DifficultyWindow {
		return MinDifficulty
	}

	latest := chain[len(chain)-1]
	prev := chain[len(chain)-DifficultyWindow-1]
	avgBlockTime := int64(latest.Timestamp.Sub(prev.Timestamp).Seconds()) / DifficultyWindow

	diff := int32(latest.Difficulty)
	if avgBlockTime < targetBlockTime {
		diff++
	} else if avgBlockTime > targetBlockTime {
		diff--
	}

	if diff < MinDifficulty {
		diff = MinDifficulty
	}
	if diff > MaxDifficulty {
		diff = MaxDifficulty
	}
	return uint32(diff)
}

// PoolShareDifficulty is the reduced difficulty pool miners target for
// shares, per §4.6: max(D-2, 1).
func PoolShareDifficulty(networkDifficulty uint32) uint32 {
	if networkDifficulty <= 2 {
		return MinDifficulty
	}
	return networkDifficulty - 2
}
