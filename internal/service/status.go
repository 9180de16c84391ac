package service

import "github.com/mmeshcher/milesmarket/internal/model"

// transitions содержит единственную таблицу допустимых переходов статуса сделки по сторонам.
// Из финальных статусов переходов нет.
var transitions = map[model.TransactionStatus]map[model.Party][]model.TransactionStatus{
	model.TransactionStatusPending: {
		model.PartySeller: {model.TransactionStatusConfirmed, model.TransactionStatusCancelled},
		model.PartyBuyer:  {model.TransactionStatusCancelled},
	},
	model.TransactionStatusConfirmed: {
		model.PartySeller: {model.TransactionStatusCancelled},
		model.PartyBuyer:  {model.TransactionStatusCompleted, model.TransactionStatusCancelled},
	},
}

// CanTransition сообщает, может ли сторона party перевести сделку из from в to.
func CanTransition(from model.TransactionStatus, party model.Party, to model.TransactionStatus) bool {
	for _, allowed := range transitions[from][party] {
		if allowed == to {
			return true
		}
	}
	return false
}
