// Package report builds the owner's daily sales report as a short chat
// summary plus a PDF attachment, and ships it on a schedule.
package report

import (
	"bytes"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/jezakh/patanabot/internal/analytics"
	"github.com/jezakh/patanabot/internal/store"
)

// Sender is the transport slice the scheduler needs.
type Sender interface {
	SendText(to, text string) error
	SendDocument(to string, data []byte, filename, caption string) error
}

type Generator struct {
	analytics *analytics.Service
	orders    *store.OrderStore
	shopName  string
}

func NewGenerator(a *analytics.Service, orders *store.OrderStore, shopName string) *Generator {
	return &Generator{analytics: a, orders: orders, shopName: shopName}
}

// BuildDaily renders today's report. The summary string goes straight
// into chat; the PDF is the attachment.
func (g *Generator) BuildDaily() ([]byte, string, error) {
	sum, err := g.analytics.DailySummary()
	if err != nil {
		return nil, "", fmt.Errorf("daily summary: %w", err)
	}
	top, err := g.analytics.TopProducts(7, 5)
	if err != nil {
		return nil, "", fmt.Errorf("top products: %w", err)
	}
	missed, err := g.analytics.TopMissed(7, 5)
	if err != nil {
		return nil, "", fmt.Errorf("top missed: %w", err)
	}
	segments, err := g.analytics.Segments()
	if err != nil {
		return nil, "", fmt.Errorf("segments: %w", err)
	}

	text := fmt.Sprintf(
		"📊 *RIPOTI YA LEO — %s*\n\n🛒 Oda: %d\n💰 Mauzo: TZS %s\n📉 Bidhaa zilizokosekana: %d\n👥 Wateja wapya: %d",
		sum.To.Format("02 Jan 2006"), sum.Orders, groupDigits(sum.Revenue), sum.Missed, sum.NewCustomers)

	pdf, err := g.renderPDF(sum, top, missed, segments)
	if err != nil {
		return nil, text, fmt.Errorf("render pdf: %w", err)
	}
	return pdf, text, nil
}

func (g *Generator) renderPDF(sum analytics.Summary, top, missed []analytics.ProductCount, segments []analytics.Segment) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, fmt.Sprintf("%s - Daily Report", g.shopName), "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, sum.To.Format("Monday, 02 January 2006"), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "Today", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	rows := [][2]string{
		{"Orders closed", strconv.FormatInt(sum.Orders, 10)},
		{"Revenue (TZS)", groupDigits(sum.Revenue)},
		{"Missed requests", strconv.FormatInt(sum.Missed, 10)},
		{"New customers", strconv.FormatInt(sum.NewCustomers, 10)},
	}
	for _, r := range rows {
		pdf.CellFormat(60, 6, r[0], "B", 0, "L", false, 0, "")
		pdf.CellFormat(60, 6, r[1], "B", 1, "R", false, 0, "")
	}
	pdf.Ln(6)

	g.rankingTable(pdf, "Top Sellers (7 days)", top, true)
	g.rankingTable(pdf, "Restock List - Asked But Missing (7 days)", missed, false)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "Latest Orders", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	if recent, err := g.orders.Recent(10); err == nil && len(recent) > 0 {
		for _, o := range recent {
			pdf.CellFormat(30, 6, o.CreatedAt.Format("02 Jan 15:04"), "B", 0, "L", false, 0, "")
			pdf.CellFormat(70, 6, o.ItemSold, "B", 0, "L", false, 0, "")
			pdf.CellFormat(35, 6, groupDigits(int64(o.AgreedPrice)), "B", 0, "R", false, 0, "")
			pdf.CellFormat(45, 6, "+"+o.Phone, "B", 1, "R", false, 0, "")
		}
	} else {
		pdf.CellFormat(0, 6, "No orders yet.", "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "Customer Book", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	if len(segments) == 0 {
		pdf.CellFormat(0, 6, "No customers yet.", "", 1, "L", false, 0, "")
	}
	for _, seg := range segments {
		pdf.CellFormat(80, 6, fmt.Sprintf("Rating %d", seg.Rating), "B", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, strconv.FormatInt(seg.Count, 10), "B", 1, "R", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Generator) rankingTable(pdf *gofpdf.Fpdf, title string, rows []analytics.ProductCount, withRevenue bool) {
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, title, "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	if len(rows) == 0 {
		pdf.CellFormat(0, 6, "Nothing recorded.", "", 1, "L", false, 0, "")
		pdf.Ln(4)
		return
	}
	for i, r := range rows {
		pdf.CellFormat(10, 6, strconv.Itoa(i+1)+".", "B", 0, "L", false, 0, "")
		pdf.CellFormat(90, 6, r.Item, "B", 0, "L", false, 0, "")
		pdf.CellFormat(20, 6, strconv.FormatInt(r.Count, 10), "B", 0, "R", false, 0, "")
		if withRevenue {
			pdf.CellFormat(40, 6, groupDigits(r.Revenue), "B", 0, "R", false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(4)
}

// Scheduler sends the daily report to the owner at a fixed local hour.
type Scheduler struct {
	gen    *Generator
	sender Sender
	owner  string
	hour   int
	stop   chan struct{}
}

func NewScheduler(gen *Generator, sender Sender, ownerPhone string, hour int) *Scheduler {
	return &Scheduler{gen: gen, sender: sender, owner: ownerPhone, hour: hour, stop: make(chan struct{})}
}

// Start runs the schedule loop in the background.
func (s *Scheduler) Start() {
	go s.loop()
}

func (s *Scheduler) Stop() { close(s.stop) }

func (s *Scheduler) loop() {
	for {
		next := nextRun(time.Now(), s.hour)
		log.Printf("🗓️ Next daily report at %s", next.Format(time.RFC1123))
		select {
		case <-time.After(time.Until(next)):
			s.deliver()
		case <-s.stop:
			return
		}
	}
}

func (s *Scheduler) deliver() {
	if s.owner == "" {
		return
	}
	pdf, text, err := s.gen.BuildDaily()
	if err != nil {
		log.Printf("❌ Daily report failed: %v", err)
		if text != "" {
			s.sender.SendText(s.owner, text)
		}
		return
	}
	if err := s.sender.SendText(s.owner, text); err != nil {
		log.Printf("❌ Report text send failed: %v", err)
	}
	name := "ripoti-" + time.Now().Format("2006-01-02") + ".pdf"
	if err := s.sender.SendDocument(s.owner, pdf, name, "📊 Ripoti ya mauzo"); err != nil {
		log.Printf("❌ Report PDF send failed: %v", err)
	}
}

// nextRun returns the next occurrence of hour o'clock after now.
func nextRun(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func groupDigits(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	var out []byte
	for i, c := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, c)
	}
	return string(out)
}
