package cmd

import "testing"

func TestReceiveCmd_Registered(t *testing.T) {
	cmd, _, err := rootCmd.Find([]string{"receive"})
	if err != nil {
		t.Fatalf("Find(receive) error: %v", err)
	}
	if cmd.Use != "receive" {
		t.Errorf("receiveCmd.Use = %q, want %q", cmd.Use, "receive")
	}
}

func TestSelftestCmd_Registered(t *testing.T) {
	cmd, _, err := rootCmd.Find([]string{"selftest"})
	if err != nil {
		t.Fatalf("Find(selftest) error: %v", err)
	}
	if cmd.Use != "selftest" {
		t.Errorf("selftestCmd.Use = %q, want %q", cmd.Use, "selftest")
	}
	if cmd.Flags().Lookup("text") == nil {
		t.Error("selftestCmd missing --text flag")
	}
}
