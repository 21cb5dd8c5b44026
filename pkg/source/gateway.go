// Package source reads campaign and budget records from the upstream
// relational store.
package source

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/ogulcanaydogan/campaign-refresh/pkg/model"
)

// Supported drivers.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config describes how to reach the campaign database.
type Config struct {
	Driver   string
	Host     string
	Port     int
	Username string
	Password string
	Database string
	SSLMode  string
}

// DSN renders the driver-specific connection string. For sqlite, Database
// is the file path.
func (c Config) DSN() (string, error) {
	switch c.driver() {
	case DriverMySQL:
		mc := mysql.NewConfig()
		mc.User = c.Username
		mc.Passwd = c.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
		mc.DBName = c.Database
		mc.ParseTime = true
		return mc.FormatDSN(), nil
	case DriverPostgres:
		sslmode := c.SSLMode
		if sslmode == "" {
			sslmode = "disable"
		}
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.Username, c.Password, c.Database, sslmode), nil
	case DriverSQLite:
		return c.Database, nil
	default:
		return "", fmt.Errorf("unsupported driver %q", c.Driver)
	}
}

func (c Config) driver() string {
	if c.Driver == "" {
		return DriverMySQL
	}
	return strings.ToLower(c.Driver)
}

// Gateway runs the two extraction queries against one connection pool.
type Gateway struct {
	db     *sql.DB
	driver string
	now    func() time.Time
}

// Open connects to the database and verifies the connection with a ping.
func Open(ctx context.Context, cfg Config) (*Gateway, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, model.NewError(model.KindConfig, "build dsn", err)
	}

	db, err := sql.Open(cfg.driver(), dsn)
	if err != nil {
		return nil, model.NewError(model.KindConnection, "open "+cfg.driver(), err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, model.NewError(model.KindConnection,
			fmt.Sprintf("ping %s %s", cfg.driver(), net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))), err)
	}

	return &Gateway{db: db, driver: cfg.driver(), now: time.Now}, nil
}

const campaignQuery = `SELECT campaign_id, campaign_name, campaign_type, channel,
	start_date, end_date, budget_allocated, total_spend, impressions, clicks,
	leads_generated, conversions, revenue_generated, status
FROM marketing_campaigns
WHERE start_date >= ?
ORDER BY start_date DESC`

const budgetQuery = `SELECT budget_id, campaign_id, channel, budget_category,
	allocated_amount, spent_amount, remaining_amount, quarter, month, year, cost_center
FROM budget_allocation
WHERE year >= ?
ORDER BY year DESC, quarter DESC, month DESC`

// FetchCampaigns returns campaigns that started within the last
// lookbackMonths months, newest first.
func (g *Gateway) FetchCampaigns(ctx context.Context, lookbackMonths int) ([]model.CampaignRecord, error) {
	since := model.LookbackStart(g.now(), lookbackMonths).Format("2006-01-02")

	rows, err := g.db.QueryContext(ctx, g.rebind(campaignQuery), since)
	if err != nil {
		return nil, model.NewError(model.KindQuery, "query marketing_campaigns", err)
	}
	defer rows.Close()

	campaigns := make([]model.CampaignRecord, 0)
	for rows.Next() {
		var (
			c                          model.CampaignRecord
			name, kind, channel, state sql.NullString
			start, end                 dateValue
			allocated, spend, revenue  sql.NullFloat64
			impr, clicks, leads, conv  sql.NullInt64
		)
		if err := rows.Scan(&c.CampaignID, &name, &kind, &channel, &start, &end,
			&allocated, &spend, &impr, &clicks, &leads, &conv, &revenue, &state); err != nil {
			return nil, model.NewError(model.KindQuery, "scan marketing_campaigns", err)
		}
		c.CampaignName = name.String
		c.CampaignType = kind.String
		c.Channel = channel.String
		c.StartDate = start.Time
		c.EndDate = end.Time
		c.BudgetAllocated = allocated.Float64
		c.TotalSpend = spend.Float64
		c.Impressions = impr.Int64
		c.Clicks = clicks.Int64
		c.LeadsGenerated = leads.Int64
		c.Conversions = conv.Int64
		c.RevenueGenerated = revenue.Float64
		c.Status = state.String
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, model.NewError(model.KindQuery, "iterate marketing_campaigns", err)
	}
	return campaigns, nil
}

// FetchBudgets returns budget rows from lookbackYears years ago onwards,
// newest period first.
func (g *Gateway) FetchBudgets(ctx context.Context, lookbackYears int) ([]model.BudgetRecord, error) {
	floor := model.BudgetYearFloor(g.now(), lookbackYears)

	rows, err := g.db.QueryContext(ctx, g.rebind(budgetQuery), floor)
	if err != nil {
		return nil, model.NewError(model.KindQuery, "query budget_allocation", err)
	}
	defer rows.Close()

	budgets := make([]model.BudgetRecord, 0)
	for rows.Next() {
		var (
			b                                    model.BudgetRecord
			campaign, channel, category, quarter sql.NullString
			costCenter                           sql.NullString
			allocated, spent, remaining          sql.NullFloat64
			month                                sql.NullInt64
		)
		if err := rows.Scan(&b.BudgetID, &campaign, &channel, &category,
			&allocated, &spent, &remaining, &quarter, &month, &b.Year, &costCenter); err != nil {
			return nil, model.NewError(model.KindQuery, "scan budget_allocation", err)
		}
		b.CampaignID = campaign.String
		b.Channel = channel.String
		b.BudgetCategory = category.String
		b.AllocatedAmount = allocated.Float64
		b.SpentAmount = spent.Float64
		b.RemainingAmount = remaining.Float64
		b.Quarter = quarter.String
		b.Month = int(month.Int64)
		b.CostCenter = costCenter.String
		budgets = append(budgets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, model.NewError(model.KindQuery, "iterate budget_allocation", err)
	}
	return budgets, nil
}

// Close releases the connection pool.
func (g *Gateway) Close() error {
	return g.db.Close()
}

// rebind rewrites ? placeholders to $n for postgres.
func (g *Gateway) rebind(query string) string {
	if g.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
