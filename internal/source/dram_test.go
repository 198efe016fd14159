package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

const dramTestPage = `<html><body><div id="price1">
<table class="price-table">
<tr><th>产品</th><th>最高</th><th>最低</th><th>均价</th><th>涨跌</th></tr>
<tr><td>DDR5 16G</td><td>6.2</td><td>5.8</td><td>6.00</td><td><img src="/img/up.png">0.12</td></tr>
<tr><td>DDR4 8G</td><td>2.1</td><td>1.9</td><td>2.00</td><td><img src="/img/down.png">0.03</td></tr>
<tr><td>DDR4 16G</td><td>3.4</td><td>3.2</td><td>3.30</td><td><img src="/img/stable.png">0.00</td></tr>
</table>
</div></body></html>`

func TestDRAMFetchParsesTable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(dramTestPage))
	}))
	defer server.Close()

	c := NewDRAMPriceClient()
	c.BaseURL = server.URL

	snap, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	rows := snap.Hardware.Rows
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if rows[0].Name != "DDR5 16G" || rows[0].Price != "6.00" || rows[0].Change != "+0.12" {
		t.Fatalf("row[0] = %+v", rows[0])
	}
	if rows[1].Change != "-0.03" {
		t.Fatalf("row[1].Change = %q, want -0.03", rows[1].Change)
	}
	if rows[2].Change != "0.00" {
		t.Fatalf("row[2].Change = %q, want unsigned 0.00", rows[2].Change)
	}
}

func TestDRAMFetchMissingTable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><div id="other"></div></body></html>`))
	}))
	defer server.Close()

	c := NewDRAMPriceClient()
	c.BaseURL = server.URL

	_, err := c.Fetch(context.Background())
	var se *Error
	if !errors.As(err, &se) || se.Kind != ErrParse {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestParseDRAMRowSkipsHeader(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<table><tr><th>a</th><th>b</th><th>c</th><th>d</th><th>e</th></tr></table>`))
	if err != nil {
		t.Fatalf("build doc: %v", err)
	}
	_, ok := parseDRAMRow(doc.Find("tr").First())
	if ok {
		t.Fatalf("header row should be skipped")
	}
}

func TestSignedChange(t *testing.T) {
	cases := []struct {
		html string
		want string
	}{
		{`<td><img src="/icon/up.gif">1.50</td>`, "+1.50"},
		{`<td><img src="/icon/down.gif">0.80</td>`, "-0.80"},
		{`<td>0.00</td>`, "0.00"},
	}
	for _, c := range cases {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader("<table><tr>" + c.html + "</tr></table>"))
		if err != nil {
			t.Fatalf("build doc: %v", err)
		}
		if got := signedChange(doc.Find("td").First()); got != c.want {
			t.Fatalf("signedChange(%s) = %q, want %q", c.html, got, c.want)
		}
	}
}
