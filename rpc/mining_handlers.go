package rpc

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"minechain/crypto"
	"minechain/native/mining"
	"minechain/observability/metrics"
)

type incentiveKeyParam struct {
	StakeCollection string `json:"stakeCollection"`
	RewardToken     string `json:"rewardToken"`
	BonusCollection string `json:"bonusCollection"`
	StartTime       uint64 `json:"startTime"`
	EndTime         uint64 `json:"endTime"`
	BondAmount      string `json:"bondAmount"`
	RefundRecipient string `json:"refundRecipient"`
}

func (p incentiveKeyParam) toKey() (mining.IncentiveKey, error) {
	var key mining.IncentiveKey
	bond, err := amountFromString(p.BondAmount)
	if err != nil {
		return key, fmt.Errorf("bondAmount: %w", err)
	}
	refund, err := decodeBech32(p.RefundRecipient)
	if err != nil {
		return key, fmt.Errorf("refundRecipient: %w", err)
	}
	key = mining.IncentiveKey{
		StakeCollection: strings.TrimSpace(p.StakeCollection),
		RewardToken:     strings.TrimSpace(p.RewardToken),
		BonusCollection: strings.TrimSpace(p.BonusCollection),
		StartTime:       p.StartTime,
		EndTime:         p.EndTime,
		BondAmount:      bond,
		RefundRecipient: refund,
	}
	return key, nil
}

type createIncentiveParams struct {
	Caller              string            `json:"caller"`
	Key                 incentiveKeyParam `json:"key"`
	RewardAmount        string            `json:"rewardAmount"`
	MiningTimeThreshold uint64            `json:"miningTimeThreshold"`
	Nonce               uint64            `json:"nonce"`
	Signature           string            `json:"signature"`
}

type setProtocolFeeParams struct {
	Caller       string `json:"caller"`
	RatePermille uint32 `json:"ratePermille"`
	Recipient    string `json:"recipient"`
	Nonce        uint64 `json:"nonce"`
	Signature    string `json:"signature"`
}

type stakeParams struct {
	Caller    string            `json:"caller"`
	Key       incentiveKeyParam `json:"key"`
	NftID     uint64            `json:"nftId"`
	Value     string            `json:"value"`
	Nonce     uint64            `json:"nonce"`
	Signature string            `json:"signature"`
}

type stakeBatchEntryParam struct {
	Key   incentiveKeyParam `json:"key"`
	NftID uint64            `json:"nftId"`
}

type stakeBatchParams struct {
	Caller    string                 `json:"caller"`
	Entries   []stakeBatchEntryParam `json:"entries"`
	Value     string                 `json:"value"`
	Nonce     uint64                 `json:"nonce"`
	Signature string                 `json:"signature"`
}

type unstakeParams struct {
	Caller        string            `json:"caller"`
	Key           incentiveKeyParam `json:"key"`
	NftID         uint64            `json:"nftId"`
	BondRecipient string            `json:"bondRecipient"`
	Nonce         uint64            `json:"nonce"`
	Signature     string            `json:"signature"`
}

type restakeParams struct {
	Caller        string            `json:"caller"`
	FromKey       incentiveKeyParam `json:"fromKey"`
	FromNftID     uint64            `json:"fromNftId"`
	ToKey         incentiveKeyParam `json:"toKey"`
	ToNftID       uint64            `json:"toNftId"`
	BondRecipient string            `json:"bondRecipient"`
	Nonce         uint64            `json:"nonce"`
	Signature     string            `json:"signature"`
}

type claimParams struct {
	Caller    string            `json:"caller"`
	Key       incentiveKeyParam `json:"key"`
	Recipient string            `json:"recipient"`
	Nonce     uint64            `json:"nonce"`
	Signature string            `json:"signature"`
}

type claimRefundParams struct {
	Key incentiveKeyParam `json:"key"`
}

type queryKeyParams struct {
	Key incentiveKeyParam `json:"key"`
}

type queryKeyAddrParams struct {
	Key     incentiveKeyParam `json:"key"`
	Address string            `json:"address"`
}

type queryKeyNftParams struct {
	Key   incentiveKeyParam `json:"key"`
	NftID uint64            `json:"nftId"`
}

type queryAddrParams struct {
	Address string `json:"address"`
}

type incentiveResult struct {
	IncentiveID         string `json:"incentiveId"`
	RewardRate          string `json:"rewardRate"`
	RewardPerShare      string `json:"rewardPerShare"`
	NumberOfStakes      uint64 `json:"numberOfStakes"`
	LastUpdateTime      uint64 `json:"lastUpdateTime"`
	AccruedRefund       string `json:"accruedRefund"`
	MiningTimeThreshold uint64 `json:"miningTimeThreshold"`
}

type positionResult struct {
	StartedStaking     uint64 `json:"startedStaking"`
	RewardPerSharePaid string `json:"rewardPerSharePaid"`
	Reward             string `json:"reward"`
	NumberOfStakes     uint64 `json:"numberOfStakes"`
}

type okResult struct {
	OK bool `json:"ok"`
}

type amountResult struct {
	Amount string `json:"amount"`
}

type claimResult struct {
	Amount      string `json:"amount"`
	BonusMinted bool   `json:"bonusMinted"`
}

func amountFromString(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	amt := new(big.Int)
	if _, ok := amt.SetString(trimmed, 10); !ok || amt.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount")
	}
	return amt, nil
}

func decodeBech32(addrStr string) ([20]byte, error) {
	var out [20]byte
	decoded, err := crypto.DecodeAddress(strings.TrimSpace(addrStr))
	if err != nil {
		return out, err
	}
	copy(out[:], decoded.Bytes())
	return out, nil
}

func decodeHexBytes(value string) ([]byte, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "0x")
	return hex.DecodeString(trimmed)
}

func miningDigest(action string, parts ...string) []byte {
	payload := "mining_" + action + "|" + strings.Join(parts, "|")
	digest := sha256.Sum256([]byte(payload))
	return digest[:]
}

// verifyCaller recovers the signer of the action digest and checks it matches
// the declared caller address. Mutating methods rely on this instead of any
// role held by the transport.
func verifyCaller(action, caller string, nonce uint64, signature string, parts ...string) ([20]byte, error) {
	var zero [20]byte
	if nonce == 0 {
		return zero, fmt.Errorf("nonce must be greater than zero")
	}
	callerAddr, err := decodeBech32(caller)
	if err != nil {
		return zero, err
	}
	sigBytes, err := decodeHexBytes(signature)
	if err != nil {
		return zero, err
	}
	if len(sigBytes) != 65 {
		return zero, fmt.Errorf("signature must be 65 bytes")
	}
	digest := miningDigest(action, append(parts, strconv.FormatUint(nonce, 10))...)
	pubKey, err := ethcrypto.SigToPub(digest, sigBytes)
	if err != nil {
		return zero, fmt.Errorf("invalid signature: %w", err)
	}
	recovered := ethcrypto.PubkeyToAddress(*pubKey)
	if !strings.EqualFold(recovered.Hex()[2:], hex.EncodeToString(callerAddr[:])) {
		return zero, fmt.Errorf("signature does not match caller")
	}
	return callerAddr, nil
}

func decodeParams(params []json.RawMessage, out interface{}) *RPCError {
	if len(params) != 1 {
		return &RPCError{Code: codeInvalidParams, Message: "expected a single params object"}
	}
	if err := json.Unmarshal(params[0], out); err != nil {
		return &RPCError{Code: codeInvalidParams, Message: err.Error()}
	}
	return nil
}

func keyIDHex(key mining.IncentiveKey) string {
	id := key.ID()
	return hex.EncodeToString(id[:])
}

func (s *Server) handleCreateIncentive(params []json.RawMessage) (interface{}, *RPCError) {
	var p createIncentiveParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	key, err := p.Key.toKey()
	if err != nil {
		return nil, &RPCError{Code: codeInvalidParams, Message: err.Error()}
	}
	rewardAmount, err := amountFromString(p.RewardAmount)
	if err != nil {
		return nil, &RPCError{Code: codeInvalidParams, Message: fmt.Sprintf("rewardAmount: %v", err)}
	}
	caller, err := verifyCaller("createIncentive", p.Caller, p.Nonce, p.Signature,
		keyIDHex(key), rewardAmount.String(), strconv.FormatUint(p.MiningTimeThreshold, 10))
	if err != nil {
		return nil, &RPCError{Code: codeInvalidParams, Message: err.Error()}
	}
	id, err := s.engine.CreateIncentive(caller, key, rewardAmount, p.MiningTimeThreshold)
	if err != nil {
		metrics.Mining().ObserveRejected("createIncentive")
		return nil, engineError(err)
	}
	metrics.Mining().ObserveIncentiveCreated()
	return map[string]string{"incentiveId": hex.EncodeToString(id[:])}, nil
}

func (s *Server) handleSetProtocolFee(params []json.RawMessage) (interface{}, *RPCError) {
	var p setProtocolFeeParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	recipient, err := decodeBech32(p.Recipient)
	if err != nil {
		return nil, &RPCError{Code: codeInvalidParams, Message: fmt.Sprintf("recipient: %v", err)}
	}
	caller, err := verifyCaller("setProtocolFee", p.Caller, p.Nonce, p.Signature,
		strconv.FormatUint(uint64(p.RatePermille), 10), hex.EncodeToString(recipient[:]))
	if err != nil {
		return nil, &RPCError{Code: codeInvalidParams, Message: err.Error()}
	}
	if err := s.engine.SetProtocolFee(caller, p.RatePermille, recipient); err != nil {
		metrics.Mining().ObserveRejected("setProtocolFee")
		return nil, engineError(err)
	}
	return okResult{OK: true}, nil
}

func (s *Server) handleStake(params []json.RawMessage) (interface{}, *RPCError) {
	var p stakeParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	key, err := p.Key.toKey()
	if err != nil {
		return nil, &RPCError{Code: codeInvalidParams, Message: err.Error()}
	}
	value, err := amountFromString(p.Value)
	if err != nil {
		return nil, &RPCError{Code: codeInvalidParams, Message: fmt.Sprintf("value: %v", err)}
	}
	caller, err := verifyCaller("stake", p.Caller, p.Nonce, p.Signature,
		keyIDHex(key), strconv.FormatUint(p.NftID, 10), value.String())
	if err != nil {
		return nil, &RPCError{Code: codeInvalidParams, Message: err.Error()}
	}
	if err := s.engine.Stake(caller, key, p.NftID, value); err != nil {
		metrics.Mining().ObserveRejected("stake")
		return nil, engineError(err)
	}
	metrics.Mining().ObserveStake("single")
	return okResult{OK: true}, nil
}

func (s *Server) handleStakeBatch(params []json.RawMessage) (interface{}, *RPCError) {
	var p stakeBatchParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	requests := make([]mining.StakeRequest, 0, len(p.Entries))
	digestParts := make([]string, 0, 2*len(p.Entries)+1)
	for _, entry := range p.Entries {
		key, err := entry.Key.toKey()
		if err != nil {
			return nil, &RPCError{Code: codeInvalidParams, Message: err.Error()}
		}
		requests = append(requests, mining.StakeRequest{Key: key, NftID: entry.NftID})
		digestParts = append(digestParts, keyIDHex(key), strconv.FormatUint(entry.NftID, 10))
	}
	value, err := amountFromString(p.Value)
	if err != nil {
		return nil, &RPCError{Code: codeInvalidParams, Message: fmt.Sprintf("value: %v", err)}
	}
	digestParts = append(digestParts, value.String())
	caller, err := verifyCaller("stakeBatch", p.Caller, p.Nonce, p.Signature, digestParts...)
	if err != nil {
		return nil, &RPCError{Code: codeInvalidParams, Message: err.Error()}
	}
	if err := s.engine.StakeBatch(caller, requests, value); err != nil {
		metrics.Mining().ObserveRejected("stakeBatch")
		return nil, engineError(err)
	}
	metrics.Mining().ObserveStake("batch")
	return okResult{OK: true}, nil
}

func (s *Server) handleUnstake(params []json.RawMessage) (interface{}, *RPCError) {
	var p unstakeParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	key, err := p.Key.toKey()
	if err != nil {
		return nil, &RPCError{Code: codeInvalidParams, Message: err.Error()}
	}
	bondRecipient, err := decodeBech32(p.BondRecipient)
	if err != nil {
		return nil, &RPCError{Code: codeInvalidParams, Message: fmt.Sprintf("bondRecipient: %v", err)}
	}
	caller, err := verifyCaller("unstake", p.Caller, p.Nonce, p.Signature,
		keyIDHex(key), strconv.FormatUint(p.NftID, 10), hex.EncodeToString(bondRecipient[:]))
	if err != nil {
		return nil, &RPCError{Code: codeInvalidParams, Message: err.Error()}
	}
	if err := s.engine.Unstake(caller, key, p.NftID, bondRecipient); err != nil {
		metrics.Mining().ObserveRejected("unstake")
		return nil, engineError(err)
	}
	metrics.Mining().ObserveUnstake()
	return okResult{OK: true}, nil
}

func (s *Server) handleRestake(params []json.RawMessage) (interface{}, *RPCError) {
	var p restakeParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	fromKey, err := p.FromKey.toKey()
	if err != nil {
		return nil, &RPCError{Code: codeInvalidParams, Message: err.Error()}
	}
	toKey, err := p.ToKey.toKey()
	if err != nil {
		return nil, &RPCError{Code: codeInvalidParams, Message: err.Error()}
	}
	bondRecipient, err := decodeBech32(p.BondRecipient)
	if err != nil {
		return nil, &RPCError{Code: codeInvalidParams, Message: fmt.Sprintf("bondRecipient: %v", err)}
	}
	caller, err := verifyCaller("restake", p.Caller, p.Nonce, p.Signature,
		keyIDHex(fromKey), strconv.FormatUint(p.FromNftID, 10),
		keyIDHex(toKey), strconv.FormatUint(p.ToNftID, 10),
		hex.EncodeToString(bondRecipient[:]))
	if err != nil {
		return nil, &RPCError{Code: codeInvalidParams, Message: err.Error()}
	}
	if err := s.engine.Restake(caller, fromKey, p.FromNftID, toKey, p.ToNftID, bondRecipient); err != nil {
		metrics.Mining().ObserveRejected("restake")
		return nil, engineError(err)
	}
	metrics.Mining().ObserveUnstake()
	metrics.Mining().ObserveStake("single")
	return okResult{OK: true}, nil
}

func (s *Server) handleSlash(params []json.RawMessage) (interface{}, *RPCError) {
	var p unstakeParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	key, err := p.Key.toKey()
	if err != nil {
		return nil, &RPCError{Code: codeInvalidParams, Message: err.Error()}
	}
	bondRecipient, err := decodeBech32(p.BondRecipient)
	if err != nil {
		return nil, &RPCError{Code: codeInvalidParams, Message: fmt.Sprintf("bondRecipient: %v", err)}
	}
	caller, err := verifyCaller("slash", p.Caller, p.Nonce, p.Signature,
		keyIDHex(key), strconv.FormatUint(p.NftID, 10), hex.EncodeToString(bondRecipient[:]))
	if err != nil {
		return nil, &RPCError{Code: codeInvalidParams, Message: err.Error()}
	}
	if err := s.engine.Slash(caller, key, p.NftID, bondRecipient); err != nil {
		metrics.Mining().ObserveRejected("slash")
		return nil, engineError(err)
	}
	metrics.Mining().ObserveSlash()
	return okResult{OK: true}, nil
}

func (s *Server) handleClaim(params []json.RawMessage) (interface{}, *RPCError) {
	var p claimParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	key, err := p.Key.toKey()
	if err != nil {
		return nil, &RPCError{Code: codeInvalidParams, Message: err.Error()}
	}
	recipient, err := decodeBech32(p.Recipient)
	if err != nil {
		return nil, &RPCError{Code: codeInvalidParams, Message: fmt.Sprintf("recipient: %v", err)}
	}
	caller, err := verifyCaller("claim", p.Caller, p.Nonce, p.Signature,
		keyIDHex(key), hex.EncodeToString(recipient[:]))
	if err != nil {
		return nil, &RPCError{Code: codeInvalidParams, Message: err.Error()}
	}
	reward, bonusMinted, err := s.engine.Claim(caller, key, recipient)
	if err != nil {
		metrics.Mining().ObserveRejected("claim")
		return nil, engineError(err)
	}
	metrics.Mining().ObserveClaim(bonusMinted)
	return claimResult{Amount: reward.String(), BonusMinted: bonusMinted}, nil
}

func (s *Server) handleClaimRefund(params []json.RawMessage) (interface{}, *RPCError) {
	var p claimRefundParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	key, err := p.Key.toKey()
	if err != nil {
		return nil, &RPCError{Code: codeInvalidParams, Message: err.Error()}
	}
	refund, err := s.engine.ClaimRefund(key)
	if err != nil {
		metrics.Mining().ObserveRejected("claimRefund")
		return nil, engineError(err)
	}
	metrics.Mining().ObserveRefund()
	return amountResult{Amount: refund.String()}, nil
}

func (s *Server) handleGetIncentive(params []json.RawMessage) (interface{}, *RPCError) {
	var p queryKeyParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	key, err := p.Key.toKey()
	if err != nil {
		return nil, &RPCError{Code: codeInvalidParams, Message: err.Error()}
	}
	incentive, ok, err := s.engine.IncentiveByKey(key)
	if err != nil {
		return nil, engineError(err)
	}
	if !ok {
		return nil, engineError(mining.ErrIncentiveNotFound)
	}
	return incentiveResult{
		IncentiveID:         keyIDHex(key),
		RewardRate:          incentive.RewardRate.String(),
		RewardPerShare:      incentive.RewardPerShare.String(),
		NumberOfStakes:      incentive.NumberOfStakes,
		LastUpdateTime:      incentive.LastUpdateTime,
		AccruedRefund:       incentive.AccruedRefund.String(),
		MiningTimeThreshold: incentive.MiningTimeThreshold,
	}, nil
}

func (s *Server) handleGetPosition(params []json.RawMessage) (interface{}, *RPCError) {
	var p queryKeyAddrParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	key, err := p.Key.toKey()
	if err != nil {
		return nil, &RPCError{Code: codeInvalidParams, Message: err.Error()}
	}
	addr, err := decodeBech32(p.Address)
	if err != nil {
		return nil, &RPCError{Code: codeInvalidParams, Message: fmt.Sprintf("address: %v", err)}
	}
	position, ok, err := s.engine.Position(key, addr)
	if err != nil {
		return nil, engineError(err)
	}
	if !ok {
		return positionResult{RewardPerSharePaid: "0", Reward: "0"}, nil
	}
	return positionResult{
		StartedStaking:     position.StartedStaking,
		RewardPerSharePaid: position.RewardPerSharePaid.String(),
		Reward:             position.Reward.String(),
		NumberOfStakes:     position.NumberOfStakes,
	}, nil
}

func (s *Server) handlePendingReward(params []json.RawMessage) (interface{}, *RPCError) {
	var p queryKeyAddrParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	key, err := p.Key.toKey()
	if err != nil {
		return nil, &RPCError{Code: codeInvalidParams, Message: err.Error()}
	}
	addr, err := decodeBech32(p.Address)
	if err != nil {
		return nil, &RPCError{Code: codeInvalidParams, Message: fmt.Sprintf("address: %v", err)}
	}
	pending, err := s.engine.PendingReward(key, addr)
	if err != nil {
		return nil, engineError(err)
	}
	return amountResult{Amount: pending.String()}, nil
}

func (s *Server) handleStakeOwner(params []json.RawMessage) (interface{}, *RPCError) {
	var p queryKeyNftParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	key, err := p.Key.toKey()
	if err != nil {
		return nil, &RPCError{Code: codeInvalidParams, Message: err.Error()}
	}
	owner, ok, err := s.engine.StakeOwner(key, p.NftID)
	if err != nil {
		return nil, engineError(err)
	}
	if !ok {
		return nil, engineError(mining.ErrNothingStaked)
	}
	return map[string]string{"owner": crypto.MustNewAddress(crypto.MinePrefix, owner[:]).String()}, nil
}

func (s *Server) handleMinedTime(params []json.RawMessage) (interface{}, *RPCError) {
	var p queryAddrParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	addr, err := decodeBech32(p.Address)
	if err != nil {
		return nil, &RPCError{Code: codeInvalidParams, Message: fmt.Sprintf("address: %v", err)}
	}
	minedTime, err := s.engine.MinedTime(addr)
	if err != nil {
		return nil, engineError(err)
	}
	return map[string]uint64{"minedTime": minedTime}, nil
}

func (s *Server) handleFeeInfo(params []json.RawMessage) (interface{}, *RPCError) {
	if len(params) > 0 {
		var p struct{}
		if err := json.Unmarshal(params[0], &p); err != nil {
			return nil, &RPCError{Code: codeInvalidParams, Message: err.Error()}
		}
	}
	fee, ok, err := s.engine.ProtocolFeeInfo()
	if err != nil {
		return nil, engineError(err)
	}
	if !ok {
		return map[string]interface{}{"ratePermille": 0}, nil
	}
	return map[string]interface{}{
		"ratePermille": fee.RatePermille,
		"recipient":    crypto.MustNewAddress(crypto.MinePrefix, fee.Recipient[:]).String(),
	}, nil
}
