package contracts

// VestingABI is the subset of the vesting contract ABI the client calls.
const VestingABI = `[
  {
    "type": "function",
    "name": "owner",
    "stateMutability": "view",
    "inputs": [],
    "outputs": [{"name": "", "type": "address"}]
  },
  {
    "type": "function",
    "name": "checkVestedAmount",
    "stateMutability": "view",
    "inputs": [{"name": "_user", "type": "address"}],
    "outputs": [{"name": "", "type": "uint256"}]
  },
  {
    "type": "function",
    "name": "createVestingSchedule",
    "stateMutability": "payable",
    "inputs": [
      {"name": "_beneficiary", "type": "address"},
      {"name": "_duration", "type": "uint256"},
      {"name": "_cliffDuration", "type": "uint256"}
    ],
    "outputs": []
  },
  {
    "type": "function",
    "name": "claimBalance",
    "stateMutability": "nonpayable",
    "inputs": [{"name": "_user", "type": "address"}],
    "outputs": []
  }
]`

// Function names as they appear in VestingABI.
const (
	MethodOwner                 = "owner"
	MethodCheckVestedAmount     = "checkVestedAmount"
	MethodCreateVestingSchedule = "createVestingSchedule"
	MethodClaimBalance          = "claimBalance"
)
