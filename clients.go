package main

import (
	"sync"

	"bitbucket.org/travelshield/portal_backend/insurerapi"
	"bitbucket.org/travelshield/portal_backend/razorpay"
)

// External clients are built lazily so the server can start before their
// env is present; endpoints that need a missing client answer 503.
var (
	insurerClientMu sync.Mutex
	insurerClient   *insurerapi.Client

	checkoutClientMu sync.Mutex
	checkoutClient   *razorpay.Client
)

func getInsurerClient() (*insurerapi.Client, error) {
	insurerClientMu.Lock()
	defer insurerClientMu.Unlock()
	if insurerClient != nil {
		return insurerClient, nil
	}
	client, err := insurerapi.NewClient()
	if err != nil {
		return nil, err
	}
	insurerClient = client
	return insurerClient, nil
}

func getCheckoutClient() (*razorpay.Client, error) {
	checkoutClientMu.Lock()
	defer checkoutClientMu.Unlock()
	if checkoutClient != nil {
		return checkoutClient, nil
	}
	client, err := razorpay.NewClient()
	if err != nil {
		return nil, err
	}
	checkoutClient = client
	return checkoutClient, nil
}
