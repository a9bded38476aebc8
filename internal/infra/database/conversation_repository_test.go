package database

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/xavierca1/ligue-inference/internal/entity"
)

func TestParseLeadBootstrapPolicy(t *testing.T) {
	policy, err := ParseLeadBootstrapPolicy("")
	assert.NoError(t, err)
	assert.Equal(t, LeadPolicyReuseExisting, policy)

	policy, err = ParseLeadBootstrapPolicy("reuse_existing")
	assert.NoError(t, err)
	assert.Equal(t, LeadPolicyReuseExisting, policy)

	policy, err = ParseLeadBootstrapPolicy("always_new")
	assert.NoError(t, err)
	assert.Equal(t, LeadPolicyAlwaysNew, policy)

	_, err = ParseLeadBootstrapPolicy("sometimes")
	assert.Error(t, err)
}

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	var km keyedMutex
	var wg sync.WaitGroup

	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock("conv-1")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}

func appendTurnMessages() []entity.Message {
	return []entity.Message{
		{Role: entity.RoleUser, Content: "Hola", Timestamp: time.Now()},
		{Role: entity.RoleAssistant, Content: "¡Hola!", Timestamp: time.Now()},
	}
}

func TestAppendTurnWritesWhenTotalMatches(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()
	repo := NewConversationRepository(db, LeadPolicyReuseExisting)

	mock.ExpectExec("UPDATE lead_conversations").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.AppendTurn(context.Background(), "conv-1", appendTurnMessages(), nil, 0)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A condição em total_messages é o que fecha o lost update: escrita com
// baseline velho não afeta linha nenhuma e vira conflito, nunca overwrite.
func TestAppendTurnStaleBaselineIsConflict(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()
	repo := NewConversationRepository(db, LeadPolicyReuseExisting)

	mock.ExpectExec("UPDATE lead_conversations").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT total_messages FROM lead_conversations").
		WithArgs("conv-1").
		WillReturnRows(sqlmock.NewRows([]string{"total_messages"}).AddRow(4))

	err := repo.AppendTurn(context.Background(), "conv-1", appendTurnMessages(), nil, 2)

	assert.ErrorIs(t, err, entity.ErrConversationConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendTurnMissingConversation(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()
	repo := NewConversationRepository(db, LeadPolicyReuseExisting)

	mock.ExpectExec("UPDATE lead_conversations").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT total_messages FROM lead_conversations").
		WithArgs("conv-x").
		WillReturnError(sql.ErrNoRows)

	err := repo.AppendTurn(context.Background(), "conv-x", appendTurnMessages(), nil, 0)

	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestAppendTurnRejectsInvalidMessage(t *testing.T) {
	db, _ := newMockDB(t)
	defer db.Close()
	repo := NewConversationRepository(db, LeadPolicyReuseExisting)

	bad := []entity.Message{{Role: "system", Content: "x"}}
	err := repo.AppendTurn(context.Background(), "conv-1", bad, nil, 0)

	assert.Error(t, err)
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	var km keyedMutex

	// Segurar uma chave não pode bloquear outra.
	unlockA := km.Lock("conv-a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := km.Lock("conv-b")
		unlockB()
		close(done)
	}()

	<-done
}

// A entrada do mapa some quando ninguém mais segura nem espera o lock.
func TestKeyedMutexEvictsIdleEntries(t *testing.T) {
	var km keyedMutex

	unlock := km.Lock("conv-1")
	unlock()

	km.mu.Lock()
	assert.Empty(t, km.locks)
	km.mu.Unlock()

	// Uso concorrente também termina com o mapa vazio.
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := km.Lock("conv-2")
			release()
		}()
	}
	wg.Wait()

	km.mu.Lock()
	assert.Empty(t, km.locks)
	km.mu.Unlock()
}
