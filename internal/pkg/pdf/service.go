// internal/pkg/pdf/service.go
package pdf

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/SebastiaanKlippert/go-wkhtmltopdf"
	"github.com/your-org/cinema-backend/internal/config"
	"github.com/your-org/cinema-backend/internal/domain/order"
	"github.com/your-org/cinema-backend/internal/pkg/money"
)

// Service handles PDF generation
type Service struct {
	config *config.Config
	tmpl   *template.Template
}

// NewService creates a new PDF service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
		tmpl:   template.Must(template.New("receipt").Parse(receiptTemplate)),
	}
}

// ReceiptData represents the data passed to the receipt template
type ReceiptData struct {
	ReceiptNumber string        `json:"receipt_number"`
	ReceiptDate   string        `json:"receipt_date"`
	OrderID       uint          `json:"order_id"`
	OrderDate     string        `json:"order_date"`
	PaidAt        string        `json:"paid_at,omitempty"`
	CustomerEmail string        `json:"customer_email"`
	Items         []ReceiptLine `json:"items"`
	Total         string        `json:"total"`
	WatchLink     string        `json:"watch_link"`
	Company       CompanyInfo   `json:"company"`
}

// ReceiptLine is one purchased movie
type ReceiptLine struct {
	MovieID uint   `json:"movie_id"`
	Title   string `json:"title"`
	Year    int    `json:"year,omitempty"`
	Price   string `json:"price"`
}

// CompanyInfo represents company information
type CompanyInfo struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Email   string `json:"email"`
	Website string `json:"website"`
}

// BuildReceipt collects what the receipt shows for a paid order
func (s *Service) BuildReceipt(o *order.Order) ReceiptData {
	data := ReceiptData{
		ReceiptNumber: fmt.Sprintf("RCPT-%06d", o.ID),
		ReceiptDate:   time.Now().Format("January 2, 2006"),
		OrderID:       o.ID,
		OrderDate:     o.CreatedAt.Format("January 2, 2006"),
		Total:         money.Format(o.TotalAmount),
		WatchLink:     s.config.URL("/api/v1/movies/purchased"),
		Company: CompanyInfo{
			Name:    s.config.App.CompanyName,
			Address: s.config.App.CompanyAddress,
			Email:   s.config.App.CompanyEmail,
			Website: s.config.App.CompanyWebsite,
		},
	}

	if o.User != nil {
		data.CustomerEmail = o.User.Email
	}

	for _, h := range o.StatusHistory {
		if h.Status == order.OrderStatusPaid {
			data.PaidAt = h.CreatedAt.Format("January 2, 2006 15:04 MST")
		}
	}

	for _, item := range o.Items {
		line := ReceiptLine{
			MovieID: item.MovieID,
			Title:   fmt.Sprintf("Movie #%d", item.MovieID),
			Price:   money.Format(item.PriceAtOrder),
		}
		if item.Movie != nil {
			line.Title = item.Movie.Name
			line.Year = item.Movie.Year
		}
		data.Items = append(data.Items, line)
	}

	return data
}

// GenerateReceipt renders a PDF receipt for a paid order
func (s *Service) GenerateReceipt(o *order.Order) (*bytes.Buffer, error) {
	htmlContent, err := s.generateHTML(s.BuildReceipt(o))
	if err != nil {
		return nil, fmt.Errorf("failed to generate HTML: %w", err)
	}

	// Convert HTML to PDF
	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF generator: %w", err)
	}

	pdfg.Dpi.Set(300)
	pdfg.Orientation.Set(wkhtmltopdf.OrientationPortrait)
	pdfg.Grayscale.Set(false)
	pdfg.Title.Set(fmt.Sprintf("Receipt for order #%d", o.ID))

	page := wkhtmltopdf.NewPageReader(bytes.NewReader([]byte(htmlContent)))
	page.FooterRight.Set("[page]")
	page.FooterFontSize.Set(9)
	page.Zoom.Set(0.95)

	pdfg.AddPage(page)

	if err := pdfg.Create(); err != nil {
		return nil, fmt.Errorf("failed to create PDF: %w", err)
	}

	return bytes.NewBuffer(pdfg.Bytes()), nil
}

// generateHTML generates HTML content from template
func (s *Service) generateHTML(data ReceiptData) (string, error) {
	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

const receiptTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Receipt {{.ReceiptNumber}}</title>
    <style>
        body {
            font-family: Arial, sans-serif;
            margin: 0;
            padding: 20px;
            color: #333;
        }
        .header {
            display: flex;
            justify-content: space-between;
            margin-bottom: 30px;
            border-bottom: 2px solid #eee;
            padding-bottom: 20px;
        }
        .company-info {
            flex: 1;
        }
        .receipt-info {
            text-align: right;
            flex: 1;
        }
        .receipt-title {
            font-size: 28px;
            font-weight: bold;
            color: #b91c1c;
            margin-bottom: 10px;
        }
        .section-title {
            font-size: 16px;
            font-weight: bold;
            margin-bottom: 10px;
            color: #374151;
        }
        .items-table {
            width: 100%;
            border-collapse: collapse;
            margin-bottom: 30px;
        }
        .items-table th,
        .items-table td {
            border: 1px solid #ddd;
            padding: 12px 8px;
            text-align: left;
        }
        .items-table th {
            background-color: #f8f9fa;
            font-weight: bold;
        }
        .items-table .price-col {
            text-align: right;
            width: 100px;
        }
        .total-row td {
            font-size: 18px;
            font-weight: bold;
            border-top: 2px solid #333;
        }
        .status-badge {
            display: inline-block;
            padding: 4px 8px;
            border-radius: 4px;
            font-size: 12px;
            font-weight: bold;
            background-color: #dcfce7;
            color: #166534;
        }
        .footer {
            margin-top: 50px;
            padding-top: 20px;
            border-top: 1px solid #eee;
            text-align: center;
            color: #666;
            font-size: 12px;
        }
    </style>
</head>
<body>
    <div class="header">
        <div class="company-info">
            <h1>{{.Company.Name}}</h1>
            {{if .Company.Address}}<p>{{.Company.Address}}</p>{{end}}
            <p>Email: {{.Company.Email}}</p>
            <p>{{.Company.Website}}</p>
        </div>
        <div class="receipt-info">
            <div class="receipt-title">RECEIPT</div>
            <p><strong>Receipt #:</strong> {{.ReceiptNumber}}</p>
            <p><strong>Date:</strong> {{.ReceiptDate}}</p>
            <p><strong>Order #:</strong> {{.OrderID}}</p>
            <p><span class="status-badge">PAID</span></p>
        </div>
    </div>

    <div>
        <div class="section-title">Customer</div>
        <p>{{.CustomerEmail}}</p>
        <p>Ordered on {{.OrderDate}}{{if .PaidAt}}, paid on {{.PaidAt}}{{end}}</p>
    </div>

    <table class="items-table">
        <thead>
            <tr>
                <th>Movie</th>
                <th class="price-col">Price</th>
            </tr>
        </thead>
        <tbody>
            {{range .Items}}
            <tr>
                <td><strong>{{.Title}}</strong>{{if .Year}} ({{.Year}}){{end}}</td>
                <td class="price-col">{{.Price}}</td>
            </tr>
            {{end}}
            <tr class="total-row">
                <td>Total</td>
                <td class="price-col">{{.Total}}</td>
            </tr>
        </tbody>
    </table>

    <div class="footer">
        <p>Your movies are ready to watch at {{.WatchLink}}</p>
        <p>If you have any questions about this purchase, please contact us at {{.Company.Email}}</p>
    </div>
</body>
</html>
`
