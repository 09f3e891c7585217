package httpapi

import (
	"github.com/radieske/suibets-platform/internal/bet-service/dto"
	"github.com/radieske/suibets-platform/internal/bet-service/repo"
)

// valores monetários saem como número JSON; a precisão fica no Postgres
func toBetResponse(b repo.Bet) dto.BetResponse {
	return dto.BetResponse{
		ID:              b.ID,
		WalletAddress:   b.WalletAddress,
		EventID:         b.EventID,
		MarketID:        b.MarketID,
		OutcomeID:       b.OutcomeID,
		Prediction:      b.Prediction,
		BetAmount:       b.BetAmount.InexactFloat64(),
		Odds:            b.Odds.InexactFloat64(),
		PotentialPayout: b.PotentialPayout.InexactFloat64(),
		FeeCurrency:     b.FeeCurrency,
		Status:          b.Status,
		TxHash:          b.TxHash,
		OnChainBetID:    b.OnChainBetID,
		PlacedAt:        b.PlacedAt,
		SettledAt:       b.SettledAt,
	}
}

func toParlayResponse(p repo.Parlay) dto.ParlayResponse {
	legs := make([]dto.LegResponse, 0, len(p.Legs))
	for _, l := range p.Legs {
		legs = append(legs, dto.LegResponse{
			EventID:    l.EventID,
			MarketID:   l.MarketID,
			OutcomeID:  l.OutcomeID,
			Prediction: l.Prediction,
			Odds:       l.Odds.InexactFloat64(),
		})
	}
	return dto.ParlayResponse{
		ID:              p.ID,
		WalletAddress:   p.WalletAddress,
		TotalStake:      p.TotalStake.InexactFloat64(),
		CombinedOdds:    p.CombinedOdds.InexactFloat64(),
		PotentialPayout: p.PotentialPayout.InexactFloat64(),
		FeeCurrency:     p.FeeCurrency,
		Status:          p.Status,
		TxHash:          p.TxHash,
		OnChainBetID:    p.OnChainBetID,
		PlacedAt:        p.PlacedAt,
		SettledAt:       p.SettledAt,
		Legs:            legs,
	}
}

func toHistoryResponse(wallet string, bets []repo.Bet, parlays []repo.Parlay) dto.WalletHistoryResponse {
	resp := dto.WalletHistoryResponse{
		WalletAddress: wallet,
		Bets:          make([]dto.BetResponse, 0, len(bets)),
		Parlays:       make([]dto.ParlayResponse, 0, len(parlays)),
	}
	for _, b := range bets {
		resp.Bets = append(resp.Bets, toBetResponse(b))
	}
	for _, p := range parlays {
		resp.Parlays = append(resp.Parlays, toParlayResponse(p))
	}
	return resp
}
