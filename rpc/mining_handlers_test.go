package rpc

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"minechain/core/state"
	"minechain/core/types"
	"minechain/crypto"
	"minechain/native/mining"
	"minechain/native/nft"
	"minechain/native/token"
	"minechain/storage"
)

type rpcTestEnv struct {
	server   *Server
	manager  *state.Manager
	engine   *mining.Engine
	registry *nft.Registry
	ledger   *token.Ledger
	now      uint64

	adminKey  *crypto.PrivateKey
	stakerKey *crypto.PrivateKey
}

func newRPCTestEnv(t *testing.T) *rpcTestEnv {
	t.Helper()
	env := &rpcTestEnv{now: 500}
	env.manager = state.NewManager(storage.NewMemDB())

	env.registry = nft.NewRegistry()
	env.registry.SetState(env.manager)
	env.ledger = token.NewLedger()
	env.ledger.SetState(env.manager)

	env.engine = mining.NewEngine()
	env.engine.SetState(env.manager)
	env.engine.SetCollections(env.registry)
	env.engine.SetTokens(env.ledger)
	env.engine.SetNowFunc(func() uint64 { return env.now })

	env.server = NewServer(env.engine, nil)

	var err error
	env.adminKey, err = crypto.GeneratePrivateKey()
	require.NoError(t, err)
	env.stakerKey, err = crypto.GeneratePrivateKey()
	require.NoError(t, err)

	adminAddr := env.adminKey.PubKey().Address()
	require.NoError(t, env.manager.SetRole(mining.RoleAdmin, adminAddr.Bytes()))

	require.NoError(t, env.manager.RegisterToken("MCR", "Mine Credits", 18))
	require.NoError(t, env.manager.SetTokenMintAuthority("MCR", adminAddr.Bytes()))
	require.NoError(t, env.ledger.Mint("MCR", env.addr(env.adminKey), env.addr(env.adminKey), big.NewInt(1_000_000)))

	require.NoError(t, env.registry.CreateCollection("MINERS", "Miners", env.addr(env.adminKey)))
	require.NoError(t, env.registry.CreateCollection("BONUS", "Mining Bonus", mining.VaultAddress))

	return env
}

func (env *rpcTestEnv) addr(key *crypto.PrivateKey) [20]byte {
	var out [20]byte
	copy(out[:], key.PubKey().Address().Bytes())
	return out
}

func (env *rpcTestEnv) bech32(key *crypto.PrivateKey) string {
	return key.PubKey().Address().String()
}

func (env *rpcTestEnv) sign(t *testing.T, key *crypto.PrivateKey, action string, nonce uint64, parts ...string) string {
	t.Helper()
	digest := miningDigest(action, append(parts, strconv.FormatUint(nonce, 10))...)
	sig, err := ethcrypto.Sign(digest, key.PrivateKey)
	require.NoError(t, err)
	return hex.EncodeToString(sig)
}

func (env *rpcTestEnv) call(t *testing.T, method string, params interface{}) RPCResponse {
	t.Helper()
	rawParams, err := json.Marshal(params)
	require.NoError(t, err)
	body, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  []json.RawMessage{rawParams},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	env.server.handle(rec, req)

	var resp RPCResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func testIncentiveKeyParam(refund string) incentiveKeyParam {
	return incentiveKeyParam{
		StakeCollection: "MINERS",
		RewardToken:     "MCR",
		BonusCollection: "BONUS",
		StartTime:       1000,
		EndTime:         2000,
		BondAmount:      "50",
		RefundRecipient: refund,
	}
}

func (env *rpcTestEnv) createIncentive(t *testing.T, keyParam incentiveKeyParam) string {
	t.Helper()
	key, err := keyParam.toKey()
	require.NoError(t, err)
	id := key.ID()
	resp := env.call(t, "mining_createIncentive", createIncentiveParams{
		Caller:       env.bech32(env.adminKey),
		Key:          keyParam,
		RewardAmount: "1000000",
		Nonce:        1,
		Signature:    env.sign(t, env.adminKey, "createIncentive", 1, hex.EncodeToString(id[:]), "1000000", "0"),
	})
	require.Nil(t, resp.Error)
	result, ok := resp.Result.(map[string]interface{})
	require.True(t, ok)
	return result["incentiveId"].(string)
}

func TestCreateIncentiveOverRPC(t *testing.T) {
	env := newRPCTestEnv(t)
	keyParam := testIncentiveKeyParam(env.bech32(env.adminKey))

	gotID := env.createIncentive(t, keyParam)
	key, err := keyParam.toKey()
	require.NoError(t, err)
	wantID := key.ID()
	require.Equal(t, hex.EncodeToString(wantID[:]), gotID)

	resp := env.call(t, "mining_getIncentive", queryKeyParams{Key: keyParam})
	require.Nil(t, resp.Error)
	result := resp.Result.(map[string]interface{})
	require.Equal(t, "1000", result["rewardRate"])
	require.Equal(t, gotID, result["incentiveId"])
}

func TestCreateIncentiveRejectsNonAdmin(t *testing.T) {
	env := newRPCTestEnv(t)
	keyParam := testIncentiveKeyParam(env.bech32(env.adminKey))
	key, err := keyParam.toKey()
	require.NoError(t, err)
	id := key.ID()

	resp := env.call(t, "mining_createIncentive", createIncentiveParams{
		Caller:       env.bech32(env.stakerKey),
		Key:          keyParam,
		RewardAmount: "1000000",
		Nonce:        1,
		Signature:    env.sign(t, env.stakerKey, "createIncentive", 1, hex.EncodeToString(id[:]), "1000000", "0"),
	})
	require.NotNil(t, resp.Error)
	require.Equal(t, codeUnauthorized, resp.Error.Code)
}

func TestCreateIncentiveRejectsForgedSignature(t *testing.T) {
	env := newRPCTestEnv(t)
	keyParam := testIncentiveKeyParam(env.bech32(env.adminKey))
	key, err := keyParam.toKey()
	require.NoError(t, err)
	id := key.ID()

	// A signature from a key that is not the declared caller.
	resp := env.call(t, "mining_createIncentive", createIncentiveParams{
		Caller:       env.bech32(env.adminKey),
		Key:          keyParam,
		RewardAmount: "1000000",
		Nonce:        1,
		Signature:    env.sign(t, env.stakerKey, "createIncentive", 1, hex.EncodeToString(id[:]), "1000000", "0"),
	})
	require.NotNil(t, resp.Error)
	require.Equal(t, codeInvalidParams, resp.Error.Code)
}

func TestStakeLifecycleOverRPC(t *testing.T) {
	env := newRPCTestEnv(t)
	keyParam := testIncentiveKeyParam(env.bech32(env.adminKey))
	env.createIncentive(t, keyParam)
	key, err := keyParam.toKey()
	require.NoError(t, err)
	id := key.ID()

	stakerAddr := env.addr(env.stakerKey)
	nftID, err := env.registry.Mint("MINERS", env.addr(env.adminKey), stakerAddr)
	require.NoError(t, err)
	require.NoError(t, env.manager.PutAccount(stakerAddr[:], &types.Account{Balance: big.NewInt(50)}))

	env.now = 1000
	resp := env.call(t, "mining_stake", stakeParams{
		Caller:    env.bech32(env.stakerKey),
		Key:       keyParam,
		NftID:     nftID,
		Value:     "50",
		Nonce:     1,
		Signature: env.sign(t, env.stakerKey, "stake", 1, hex.EncodeToString(id[:]), strconv.FormatUint(nftID, 10), "50"),
	})
	require.Nil(t, resp.Error)

	resp = env.call(t, "mining_stakeOwner", queryKeyNftParams{Key: keyParam, NftID: nftID})
	require.Nil(t, resp.Error)
	owner := resp.Result.(map[string]interface{})["owner"].(string)
	require.Equal(t, env.bech32(env.stakerKey), owner)

	env.now = 1400
	resp = env.call(t, "mining_pendingReward", queryKeyAddrParams{Key: keyParam, Address: env.bech32(env.stakerKey)})
	require.Nil(t, resp.Error)
	require.Equal(t, "400000", resp.Result.(map[string]interface{})["amount"])

	resp = env.call(t, "mining_claim", claimParams{
		Caller:    env.bech32(env.stakerKey),
		Key:       keyParam,
		Recipient: env.bech32(env.stakerKey),
		Nonce:     2,
		Signature: env.sign(t, env.stakerKey, "claim", 2, hex.EncodeToString(id[:]), hex.EncodeToString(stakerAddr[:])),
	})
	require.Nil(t, resp.Error)
	require.Equal(t, "400000", resp.Result.(map[string]interface{})["amount"])
	require.Equal(t, false, resp.Result.(map[string]interface{})["bonusMinted"])

	balance, err := env.ledger.BalanceOf("MCR", stakerAddr)
	require.NoError(t, err)
	require.Zero(t, balance.Cmp(big.NewInt(400_000)))

	// The claim folded the 400s streak while the stake is still registered.
	resp = env.call(t, "mining_minedTime", queryAddrParams{Address: env.bech32(env.stakerKey)})
	require.Nil(t, resp.Error)
	require.Equal(t, float64(400), resp.Result.(map[string]interface{})["minedTime"])

	resp = env.call(t, "mining_unstake", unstakeParams{
		Caller:        env.bech32(env.stakerKey),
		Key:           keyParam,
		NftID:         nftID,
		BondRecipient: env.bech32(env.stakerKey),
		Nonce:         3,
		Signature:     env.sign(t, env.stakerKey, "unstake", 3, hex.EncodeToString(id[:]), strconv.FormatUint(nftID, 10), hex.EncodeToString(stakerAddr[:])),
	})
	require.Nil(t, resp.Error)

	account, err := env.manager.GetAccount(stakerAddr[:])
	require.NoError(t, err)
	require.Zero(t, account.Balance.Cmp(big.NewInt(50)))

	// Dropping to zero registered assets reset the accumulator.
	resp = env.call(t, "mining_minedTime", queryAddrParams{Address: env.bech32(env.stakerKey)})
	require.Nil(t, resp.Error)
	require.Equal(t, float64(0), resp.Result.(map[string]interface{})["minedTime"])
}

func TestStakeWrongBondMapsToPrecondition(t *testing.T) {
	env := newRPCTestEnv(t)
	keyParam := testIncentiveKeyParam(env.bech32(env.adminKey))
	env.createIncentive(t, keyParam)
	key, err := keyParam.toKey()
	require.NoError(t, err)
	id := key.ID()

	stakerAddr := env.addr(env.stakerKey)
	nftID, err := env.registry.Mint("MINERS", env.addr(env.adminKey), stakerAddr)
	require.NoError(t, err)

	resp := env.call(t, "mining_stake", stakeParams{
		Caller:    env.bech32(env.stakerKey),
		Key:       keyParam,
		NftID:     nftID,
		Value:     "49",
		Nonce:     1,
		Signature: env.sign(t, env.stakerKey, "stake", 1, hex.EncodeToString(id[:]), strconv.FormatUint(nftID, 10), "49"),
	})
	require.NotNil(t, resp.Error)
	require.Equal(t, codePrecondition, resp.Error.Code)
}

func TestClaimRefundOverRPC(t *testing.T) {
	env := newRPCTestEnv(t)
	keyParam := testIncentiveKeyParam(env.bech32(env.adminKey))
	env.createIncentive(t, keyParam)

	env.now = 2500
	resp := env.call(t, "mining_claimRefund", claimRefundParams{Key: keyParam})
	require.Nil(t, resp.Error)
	require.Equal(t, "1000000", resp.Result.(map[string]interface{})["amount"])
}

func TestQueryMissingIncentive(t *testing.T) {
	env := newRPCTestEnv(t)
	keyParam := testIncentiveKeyParam(env.bech32(env.adminKey))
	resp := env.call(t, "mining_getIncentive", queryKeyParams{Key: keyParam})
	require.NotNil(t, resp.Error)
	require.Equal(t, codePrecondition, resp.Error.Code)
}

func TestMethodNotFound(t *testing.T) {
	env := newRPCTestEnv(t)
	resp := env.call(t, "mining_unknownMethod", struct{}{})
	require.NotNil(t, resp.Error)
	require.Equal(t, codeMethodNotFound, resp.Error.Code)
}

func TestFeeInfoDefaults(t *testing.T) {
	env := newRPCTestEnv(t)
	resp := env.call(t, "mining_feeInfo", struct{}{})
	require.Nil(t, resp.Error)
	require.Equal(t, float64(0), resp.Result.(map[string]interface{})["ratePermille"])
}
