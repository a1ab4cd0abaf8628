//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"despesas_bot/internal/bot"
	"despesas_bot/internal/ledger/models"
	"despesas_bot/internal/ledger/repository"
	"despesas_bot/internal/ledger/service"
	mongoclient "despesas_bot/internal/mongo"

	"github.com/shopspring/decimal"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
)

func TestExpenseRepositoryIntegrationFlow(t *testing.T) {
	t.Parallel()

	db := setupIntegrationDatabase(t)
	expenseRepo := repository.NewMongoExpenseRepository(db)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := expenseRepo.EnsureIndexes(ctx); err != nil {
		t.Fatalf("failed to ensure indexes: %v", err)
	}

	old := &models.ExpenseRecord{
		User:         "559291234567",
		Amount:       100,
		Category:     "mercado",
		Installments: 1,
		RecordedAt:   time.Now().AddDate(0, -2, 0).UTC(),
	}
	if err := expenseRepo.CreateRecord(ctx, old); err != nil {
		t.Fatalf("failed to create old record: %v", err)
	}
	if old.ID.IsZero() {
		t.Fatalf("expected inserted id to be set")
	}

	for _, record := range []*models.ExpenseRecord{
		{User: "559291234567", Amount: 144, Category: "ifood", Installments: 1},
		{User: "559291234567", Amount: 150, Category: "Parcela", Installments: 3},
		{User: "559291234567", Amount: 20.5, Category: "ifood", Installments: 1},
		{User: "5511999990000", Amount: 999, Category: "ifood", Installments: 1},
	} {
		if err := expenseRepo.CreateRecord(ctx, record); err != nil {
			t.Fatalf("failed to create record: %v", err)
		}
	}

	total, err := expenseRepo.SumByUser(ctx, "559291234567", time.Time{})
	if err != nil {
		t.Fatalf("failed to sum by user: %v", err)
	}
	if !total.Equal(decimal.RequireFromString("414.5")) {
		t.Fatalf("unexpected total: got %s, want 414.5", total)
	}

	recent, err := expenseRepo.SumByUser(ctx, "559291234567", time.Now().AddDate(0, -1, 0))
	if err != nil {
		t.Fatalf("failed to sum recent: %v", err)
	}
	if !recent.Equal(decimal.RequireFromString("314.5")) {
		t.Fatalf("unexpected recent total: got %s, want 314.5", recent)
	}

	totals, err := expenseRepo.SumByCategory(ctx, "559291234567", time.Time{})
	if err != nil {
		t.Fatalf("failed to sum by category: %v", err)
	}
	want := []string{"Parcela=150.00", "ifood=164.50", "mercado=100.00"}
	if len(totals) != len(want) {
		t.Fatalf("unexpected category count: got %d, want %d", len(totals), len(want))
	}
	for i, total := range totals {
		got := total.Category + "=" + total.Total.StringFixed(2)
		if got != want[i] {
			t.Fatalf("unexpected category total at %d: got %s, want %s", i, got, want[i])
		}
	}

	empty, err := expenseRepo.SumByUser(ctx, "nobody", time.Time{})
	if err != nil {
		t.Fatalf("failed to sum empty user: %v", err)
	}
	if !empty.IsZero() {
		t.Fatalf("expected zero balance, got %s", empty)
	}
}

func TestDispatcherAgainstMongo(t *testing.T) {
	t.Parallel()

	db := setupIntegrationDatabase(t)
	ledger := service.NewLedgerService(repository.NewMongoExpenseRepository(db))
	dispatcher := bot.NewDispatcher(bot.NewManager(bot.NewLedgerResponder(ledger), bot.HelpResponder{}), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	steps := []struct {
		text string
		want string
	}{
		{text: "ifood 144", want: "✅ Despesa registrada: R$144.00 em ifood (1x)"},
		{text: "parcela 3x 150", want: "✅ Despesa registrada: R$150.00 em Parcela (3x)"},
		{text: "saldo", want: "📊 Seu saldo: R$294.00"},
		{text: "relatorio", want: "📋 Relatório por categoria:\nParcela: R$150.00\nifood: R$144.00"},
	}

	for _, step := range steps {
		reply, ok := dispatcher.Handle(ctx, bot.InboundMessage{
			SenderID: "559291234567",
			ChatJID:  "559291234567@s.whatsapp.net",
			Text:     step.text,
		})
		if !ok {
			t.Fatalf("expected a reply for %q", step.text)
		}
		if reply != step.want {
			t.Fatalf("unexpected reply for %q: got %q, want %q", step.text, reply, step.want)
		}
	}
}

func setupIntegrationDatabase(t *testing.T) *mongodriver.Database {
	t.Helper()

	uri := envOrDefault("MONGO_URI", "mongodb://localhost:27017")
	baseDatabase := envOrDefault("TEST_DATABASE", "test_despesas_bot")
	databaseName := fmt.Sprintf("%s_%d", baseDatabase, time.Now().UnixNano())

	client, err := mongoclient.Connect(context.Background(), mongoclient.Config{
		URI:      uri,
		Database: databaseName,
		Timeout:  5 * time.Second,
	})
	if err != nil {
		if isCIEnvironment() {
			t.Fatalf("failed to connect MongoDB in CI: %v", err)
		}
		t.Skipf("MongoDB is not available locally, skip integration test: %v", err)
		return nil
	}

	db := client.Database()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := db.Drop(ctx); err != nil {
			t.Errorf("failed to drop integration database %s: %v", databaseName, err)
		}
		if err := client.Close(ctx); err != nil {
			t.Errorf("failed to close MongoDB connection: %v", err)
		}
	})

	return db
}

func envOrDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func isCIEnvironment() bool {
	return os.Getenv("CI") == "true" || os.Getenv("GITHUB_ACTIONS") == "true"
}
