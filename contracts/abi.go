package contracts

// Contract ids known by the Router.
const (
	Mech                   = "mech"
	MechMM                 = "mech_mm"
	Marketplace            = "mech_marketplace"
	MarketplaceLegacy      = "mech_marketplace_legacy"
	ERC20                  = "erc20"
	ERC1155                = "ierc1155"
	BalanceTracker         = "nvm_balance_tracker"
	DIDRegistry            = "did_registry"
	AgreementStorage       = "agreement_storage_manager"
	LockPaymentCondition   = "lock_payment_condition"
	TransferNFTCondition   = "transfer_nft_condition"
	EscrowPaymentCondition = "escrow_payment_condition"
	NFTSales               = "nft_sales"
	SubscriptionProvider   = "subscription_provider"
	GnosisSafe             = "gnosis_safe"
)

const mechABI = `[
{"type":"function","name":"price","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"request","stateMutability":"payable","inputs":[{"name":"data","type":"bytes"}],"outputs":[{"name":"requestId","type":"uint256"}]}
]`

const mechMMABI = `[
{"type":"function","name":"paymentType","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bytes32"}]},
{"type":"function","name":"maxDeliveryRate","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]}
]`

const marketplaceABI = `[
{"type":"function","name":"maxFeeFactor","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"request","stateMutability":"payable","inputs":[
 {"name":"requestData","type":"bytes"},
 {"name":"maxDeliveryRate","type":"uint256"},
 {"name":"paymentType","type":"bytes32"},
 {"name":"priorityMech","type":"address"},
 {"name":"responseTimeout","type":"uint256"},
 {"name":"paymentData","type":"bytes"}],"outputs":[{"name":"requestId","type":"bytes32"}]}
]`

const marketplaceLegacyABI = `[
{"type":"function","name":"request","stateMutability":"payable","inputs":[
 {"name":"data","type":"bytes"},
 {"name":"priorityMech","type":"address"},
 {"name":"priorityMechStakingInstance","type":"address"},
 {"name":"priorityMechServiceId","type":"uint256"},
 {"name":"requesterStakingInstance","type":"address"},
 {"name":"requesterServiceId","type":"uint256"},
 {"name":"responseTimeout","type":"uint256"}],"outputs":[{"name":"requestId","type":"uint256"}]}
]`

const erc20ABI = `[
{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"withdraw","stateMutability":"nonpayable","inputs":[{"name":"wad","type":"uint256"}],"outputs":[]},
{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`

const erc1155ABI = `[
{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"},{"name":"id","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]}
]`

const balanceTrackerABI = `[
{"type":"function","name":"mapRequesterBalances","stateMutability":"view","inputs":[{"name":"requester","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"subscriptionNFT","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
{"type":"function","name":"subscriptionTokenId","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]}
]`

const didRegistryABI = `[
{"type":"function","name":"getDIDRegister","stateMutability":"view","inputs":[{"name":"_did","type":"bytes32"}],"outputs":[
 {"name":"owner","type":"address"},
 {"name":"lastChecksum","type":"bytes32"},
 {"name":"url","type":"string"},
 {"name":"lastUpdatedBy","type":"address"},
 {"name":"blockNumberUpdated","type":"uint256"},
 {"name":"providers","type":"address[]"},
 {"name":"nftSupply","type":"uint256"},
 {"name":"mintCap","type":"uint256"},
 {"name":"royalties","type":"uint256"}]}
]`

const agreementStorageABI = `[
{"type":"function","name":"agreementId","stateMutability":"pure","inputs":[{"name":"_agreementId","type":"bytes32"},{"name":"_creator","type":"address"}],"outputs":[{"name":"","type":"bytes32"}]}
]`

const generateIDABI = `{"type":"function","name":"generateId","stateMutability":"pure","inputs":[{"name":"_agreementId","type":"bytes32"},{"name":"_valueHash","type":"bytes32"}],"outputs":[{"name":"","type":"bytes32"}]}`

const lockPaymentConditionABI = `[` + generateIDABI + `,
{"type":"function","name":"hashValues","stateMutability":"pure","inputs":[
 {"name":"_did","type":"bytes32"},
 {"name":"_rewardAddress","type":"address"},
 {"name":"_tokenAddress","type":"address"},
 {"name":"_amounts","type":"uint256[]"},
 {"name":"_receivers","type":"address[]"}],"outputs":[{"name":"","type":"bytes32"}]}
]`

const transferNFTConditionABI = `[` + generateIDABI + `,
{"type":"function","name":"hashValues","stateMutability":"pure","inputs":[
 {"name":"_did","type":"bytes32"},
 {"name":"_nftHolder","type":"address"},
 {"name":"_nftReceiver","type":"address"},
 {"name":"_nftAmount","type":"uint256"},
 {"name":"_lockCondition","type":"bytes32"},
 {"name":"_nftContractAddress","type":"address"},
 {"name":"_transfer","type":"bool"}],"outputs":[{"name":"","type":"bytes32"}]}
]`

const escrowPaymentConditionABI = `[` + generateIDABI + `,
{"type":"function","name":"hashValues","stateMutability":"pure","inputs":[
 {"name":"_did","type":"bytes32"},
 {"name":"_amounts","type":"uint256[]"},
 {"name":"_receivers","type":"address[]"},
 {"name":"_returnAddress","type":"address"},
 {"name":"_lockPaymentAddress","type":"address"},
 {"name":"_tokenAddress","type":"address"},
 {"name":"_lockCondition","type":"bytes32"},
 {"name":"_releaseCondition","type":"bytes32"}],"outputs":[{"name":"","type":"bytes32"}]}
]`

const nftSalesABI = `[
{"type":"function","name":"createAgreementAndPayEscrow","stateMutability":"payable","inputs":[
 {"name":"_id","type":"bytes32"},
 {"name":"_did","type":"bytes32"},
 {"name":"_conditionIds","type":"bytes32[]"},
 {"name":"_timeLocks","type":"uint256[]"},
 {"name":"_timeOuts","type":"uint256[]"},
 {"name":"_accessConsumer","type":"address"},
 {"name":"_idx","type":"uint256"},
 {"name":"_rewardAddress","type":"address"},
 {"name":"_tokenAddress","type":"address"},
 {"name":"_amounts","type":"uint256[]"},
 {"name":"_receivers","type":"address[]"}],"outputs":[]}
]`

const subscriptionProviderABI = `[
{"type":"function","name":"fulfill","stateMutability":"nonpayable","inputs":[
 {"name":"agreementId","type":"bytes32"},
 {"name":"did","type":"bytes32"},
 {"name":"fulfillForDelegateParams","type":"tuple","components":[
  {"name":"nftHolder","type":"address"},
  {"name":"nftReceiver","type":"address"},
  {"name":"nftAmount","type":"uint256"},
  {"name":"lockPaymentCondition","type":"bytes32"},
  {"name":"nftContractAddress","type":"address"},
  {"name":"transfer","type":"bool"},
  {"name":"expirationBlock","type":"uint256"}]},
 {"name":"fulfillParams","type":"tuple","components":[
  {"name":"amounts","type":"uint256[]"},
  {"name":"receivers","type":"address[]"},
  {"name":"returnAddress","type":"address"},
  {"name":"lockPaymentAddress","type":"address"},
  {"name":"tokenAddress","type":"address"},
  {"name":"lockCondition","type":"bytes32"},
  {"name":"releaseCondition","type":"bytes32"}]}],"outputs":[]}
]`

const gnosisSafeABI = `[
{"type":"function","name":"nonce","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]}
]`
