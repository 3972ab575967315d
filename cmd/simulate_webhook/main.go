package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"gym-saas-be/internal/controller"
	"gym-saas-be/internal/dto"
	"gym-saas-be/pkg/gateway"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
)

// Sends a signed sample webhook to a running server, for local testing of the
// reconciliation flow without a gateway account.
func main() {
	_ = godotenv.Load()

	url := flag.String("url", "http://localhost:3000/api/webhooks/razorpay", "webhook endpoint")
	event := flag.String("event", "payment.captured", "gateway event name")
	adminId := flag.String("admin", "", "tenant id echoed in notes.adminId")
	paymentId := flag.String("payment", fmt.Sprintf("pay_sim_%d", time.Now().Unix()), "gateway payment id")
	subscriptionId := flag.String("subscription", "", "gateway subscription id")
	amount := flag.Int64("amount", 49900, "amount in minor units")
	badSignature := flag.Bool("bad-signature", false, "send a wrong signature")
	testMode := flag.Bool("test", true, "mark the event as test mode")
	flag.Parse()

	secret := os.Getenv("RAZORPAY_WEBHOOK_SECRET")
	if secret == "" {
		color.Red("RAZORPAY_WEBHOOK_SECRET is not set")
		os.Exit(1)
	}

	body, err := json.Marshal(samplePayload(*event, *adminId, *paymentId, *subscriptionId, *amount))
	if err != nil {
		color.Red("Failed to build payload: %v", err)
		os.Exit(1)
	}

	signature := gateway.Sign(body, secret)
	if *badSignature {
		signature = gateway.Sign(body, secret+"-wrong")
	}

	target := *url
	if *testMode {
		target += "?test_mode=true"
	}

	color.Cyan("🚀 Sending %s to %s", *event, target)
	color.Yellow("Signature: %s", signature)

	req, err := http.NewRequest(http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(controller.SignatureHeader, signature)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusOK {
		color.Green("Status: %s", resp.Status)
	} else {
		color.Red("Status: %s", resp.Status)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, respBody, "", "  "); err != nil {
		fmt.Println(string(respBody))
		return
	}
	fmt.Println(pretty.String())
}

func samplePayload(event, adminId, paymentId, subscriptionId string, amount int64) dto.GatewayWebhook {
	notes := dto.Notes{}
	if adminId != "" {
		notes["adminId"] = adminId
	}

	now := time.Now()
	hook := dto.GatewayWebhook{
		Entity:    "event",
		Event:     event,
		CreatedAt: now.Unix(),
	}

	switch event {
	case "subscription.activated", "subscription.charged", "subscription.halted",
		"subscription.cancelled", "subscription.pending":
		hook.Contains = []string{"subscription"}
		hook.Payload.Subscription = &dto.SubscriptionWrapper{Entity: dto.SubscriptionEntity{
			Id:           subscriptionId,
			Status:       "active",
			CurrentStart: now.Unix(),
			CurrentEnd:   now.AddDate(0, 1, 0).Unix(),
			Notes:        notes,
		}}
		if event == "subscription.charged" {
			hook.Contains = append(hook.Contains, "payment")
			hook.Payload.Payment = &dto.PaymentWrapper{Entity: dto.PaymentEntity{
				Id:     paymentId,
				Amount: amount,
				Status: "captured",
				Notes:  notes,
			}}
		}
	case "refund.processed":
		hook.Contains = []string{"refund"}
		hook.Payload.Refund = &dto.RefundWrapper{Entity: dto.RefundEntity{
			Id:        "rfnd_sim",
			PaymentId: paymentId,
			Amount:    amount,
			Status:    "processed",
			Notes:     notes,
		}}
	default:
		status := "captured"
		if event == "payment.failed" {
			status = "failed"
		}
		hook.Contains = []string{"payment"}
		hook.Payload.Payment = &dto.PaymentWrapper{Entity: dto.PaymentEntity{
			Id:       paymentId,
			Amount:   amount,
			Currency: "INR",
			Status:   status,
			Method:   "upi",
			Notes:    notes,
		}}
	}
	return hook
}
