package routes

import (
	"fmt"
	"strings"

	"github.com/kataras/iris/v12"
	"github.com/sirupsen/logrus"

	"rentloop-server/services"
	"rentloop-server/utils"
)

// AssistHandler wraps the external completion API. Failures are swallowed and
// replaced with static template text: these endpoints always answer 200.
type AssistHandler struct {
	Client *services.AssistClient
	Log    *logrus.Logger
}

func NewAssistHandler(client *services.AssistClient, log *logrus.Logger) *AssistHandler {
	return &AssistHandler{Client: client, Log: log}
}

type DescriptionAssistInput struct {
	Title    string   `json:"title" validate:"required,max=256"`
	Tags     []string `json:"tags" validate:"max=20"`
	Category string   `json:"category" validate:"max=64"`
}

func (h *AssistHandler) GenerateDescription(ctx iris.Context) {
	var input DescriptionAssistInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	prompt := fmt.Sprintf("Write a short, friendly rental listing description for %q.", input.Title)
	if input.Category != "" {
		prompt += fmt.Sprintf(" Category: %s.", input.Category)
	}
	if len(input.Tags) > 0 {
		prompt += fmt.Sprintf(" Highlights: %s.", strings.Join(input.Tags, ", "))
	}

	text, err := h.Client.Complete(
		"You write concise, honest descriptions for a peer-to-peer rental marketplace.",
		prompt,
	)
	generated := true
	if err != nil {
		h.Log.WithError(err).Warn("description assist failed, using fallback")
		text = fallbackDescription(input)
		generated = false
	}

	utils.Success(ctx, iris.Map{"text": text, "generated": generated})
}

type AgreementAssistInput struct {
	ListingTitle string  `json:"listingTitle" validate:"required,max=256"`
	OwnerName    string  `json:"ownerName" validate:"required,max=256"`
	RenterName   string  `json:"renterName" validate:"required,max=256"`
	StartDate    string  `json:"startDate" validate:"required"`
	EndDate      string  `json:"endDate" validate:"required"`
	TotalPrice   float64 `json:"totalPrice" validate:"gte=0"`
}

func (h *AssistHandler) GenerateAgreementText(ctx iris.Context) {
	var input AgreementAssistInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	prompt := fmt.Sprintf(
		"Draft plain-language rental agreement terms: item %q, owner %s, renter %s, period %s to %s, total %.2f.",
		input.ListingTitle, input.OwnerName, input.RenterName, input.StartDate, input.EndDate, input.TotalPrice)

	text, err := h.Client.Complete(
		"You draft clear, plain-language rental agreement terms. No legal advice disclaimers.",
		prompt,
	)
	generated := true
	if err != nil {
		h.Log.WithError(err).Warn("agreement assist failed, using fallback")
		text = fallbackAgreementText(input)
		generated = false
	}

	utils.Success(ctx, iris.Map{"text": text, "generated": generated})
}

func fallbackDescription(input DescriptionAssistInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s available for rent.", input.Title)
	if input.Category != "" {
		fmt.Fprintf(&b, " Listed under %s.", input.Category)
	}
	if len(input.Tags) > 0 {
		fmt.Fprintf(&b, " Features: %s.", strings.Join(input.Tags, ", "))
	}
	b.WriteString(" Well maintained and ready to use. Message the owner with any questions.")
	return b.String()
}

func fallbackAgreementText(input AgreementAssistInput) string {
	return fmt.Sprintf(
		"%s agrees to rent %q to %s from %s to %s for a total of %.2f. "+
			"The renter will return the item in the condition received and is responsible "+
			"for loss or damage during the rental period. Either party may cancel before "+
			"the start date subject to the booking's status rules.",
		input.OwnerName, input.ListingTitle, input.RenterName,
		input.StartDate, input.EndDate, input.TotalPrice)
}
