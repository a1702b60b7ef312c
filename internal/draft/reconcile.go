package draft

import (
	"fmt"

	"github.com/shopspring/decimal"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mmynk/nbbang/internal/models"
	"github.com/mmynk/nbbang/internal/money"
)

// PayerSource is one step of the payer fallback chain.
type PayerSource struct {
	Name string
	Get  func(item, payment *structpb.Struct) string
}

// PayerChain is the order in which an item's payer is resolved. When every
// source is empty the first member of the draft is used.
var PayerChain = []PayerSource{
	{"item.payer", func(item, _ *structpb.Struct) string { return textField(item, "payer") }},
	{"item.pay_member", func(item, _ *structpb.Struct) string { return textField(item, "pay_member") }},
	{"item.paid_by", func(item, _ *structpb.Struct) string { return textField(item, "paid_by") }},
	{"payment.payer", func(_, payment *structpb.Struct) string { return textField(payment, "payer") }},
	{"payment.paid_by", func(_, payment *structpb.Struct) string { return textField(payment, "paid_by") }},
}

// ResolvePayer walks PayerChain and returns the first payer found, falling back
// to the first member.
func ResolvePayer(item, payment *structpb.Struct, members []string) string {
	for _, src := range PayerChain {
		if p := src.Get(item, payment); p != "" {
			return p
		}
	}
	if len(members) > 0 {
		return members[0]
	}
	return ""
}

type rawItem struct {
	item    *structpb.Struct
	payment *structpb.Struct
}

// payments returns the payment turns of a meeting payload. A payload without a
// payments list is treated as a single payment holding its own items.
func payments(meeting *structpb.Struct) []*structpb.Struct {
	list := listField(meeting, "payments")
	if list == nil {
		return []*structpb.Struct{meeting}
	}
	out := make([]*structpb.Struct, 0, len(list))
	for _, v := range list {
		if p := v.GetStructValue(); p != nil {
			out = append(out, p)
		}
	}
	return out
}

// Reconcile normalizes a meeting payload into a draft. The result depends only
// on the payload: the same input always produces the same draft.
func Reconcile(meeting *structpb.Struct) (models.Draft, error) {
	d := models.Draft{
		MeetingName: textField(meeting, "meeting_name", "name", "title"),
		Date:        textField(meeting, "date", "meeting_date"),
		Members:     []string{},
		Items:       []models.DraftItem{},
	}

	var raws []rawItem
	for _, p := range payments(meeting) {
		for _, v := range listField(p, "paymentItems", "payment_items", "items") {
			if it := v.GetStructValue(); it != nil {
				raws = append(raws, rawItem{item: it, payment: p})
			}
		}
	}

	// Members are the union of attendees in first-seen order, then any payer
	// who attended nothing, so the roster always follows the items.
	seen := make(map[string]bool)
	attendees := make([][]string, len(raws))
	for i, r := range raws {
		attendees[i] = []string{}
		local := make(map[string]bool)
		for _, v := range listField(r.item, "attendees", "attend_members", "members") {
			name := text(v)
			if name == "" || local[name] {
				continue
			}
			local[name] = true
			attendees[i] = append(attendees[i], name)
			if !seen[name] {
				seen[name] = true
				d.Members = append(d.Members, name)
			}
		}
	}

	// Payers resolve against the attendee roster so the first-member fallback
	// never picks a payer-only member.
	attending := d.Members
	for i, r := range raws {
		price, err := itemPrice(r.item)
		if err != nil {
			return models.Draft{}, fmt.Errorf("item %d: %w", i+1, err)
		}
		d.Items = append(d.Items, models.DraftItem{
			Name:      textField(r.item, "name", "item_name", "place"),
			Price:     price,
			Attendees: attendees[i],
			Payer:     ResolvePayer(r.item, r.payment, attending),
		})
	}
	for _, item := range d.Items {
		if item.Payer != "" && !seen[item.Payer] {
			seen[item.Payer] = true
			d.Members = append(d.Members, item.Payer)
		}
	}

	return d, nil
}

// ReconcileJSON parses raw bytes, unwraps the meeting envelope and reconciles it.
func ReconcileJSON(data []byte) (models.Draft, error) {
	root, err := ParsePayload(data)
	if err != nil {
		return models.Draft{}, err
	}
	meeting, err := UnwrapMeeting(root)
	if err != nil {
		// Analyzer output is often the draft itself with no envelope.
		meeting = root
	}
	return Reconcile(meeting)
}

// itemPrice folds quantity into the price: price = unit price × quantity.
func itemPrice(item *structpb.Struct) (int64, error) {
	unit, ok, err := number(firstField(item, "unit_price", "unitPrice", "price"))
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	qty, ok, err := number(firstField(item, "quantity", "qty", "count"))
	if err != nil {
		return 0, err
	}
	if !ok {
		qty = decimal.NewFromInt(1)
	}
	return money.Total(unit, qty), nil
}
