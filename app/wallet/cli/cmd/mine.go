package cmd

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var (
	wait   bool
	jobID  string
	cancel bool
)

type jobStatus struct {
	ID       string   `json:"job_id"`
	Miner    string   `json:"miner"`
	State    string   `json:"state"`
	Attempts []string `json:"attempts"`
	Result   *struct {
		Index      uint64 `json:"index"`
		Hash       string `json:"hash"`
		Nonce      uint64 `json:"nonce"`
		Difficulty uint   `json:"difficulty"`
	} `json:"result,omitempty"`
	Error string `json:"error,omitempty"`
}

var mineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Start a mining job that credits your address",
	Run:   mineRun,
}

var jobCmd = &cobra.Command{
	Use:   "job",
	Short: "Show or cancel a mining job",
	Run:   jobRun,
}

func init() {
	rootCmd.AddCommand(mineCmd)
	mineCmd.Flags().BoolVarP(&wait, "wait", "w", false, "Wait for the job to finish.")

	rootCmd.AddCommand(jobCmd)
	jobCmd.Flags().StringVarP(&jobID, "id", "i", "", "Id of the job, all jobs are listed when empty.")
	jobCmd.Flags().BoolVarP(&cancel, "cancel", "c", false, "Cancel the job.")
}

func mineRun(cmd *cobra.Command, args []string) {
	_, address, err := loadAccount()
	if err != nil {
		log.Fatal(err)
	}

	var resp struct {
		JobID string `json:"job_id"`
	}
	if err := call(http.MethodPost, "/v1/mining/jobs", map[string]string{"miner": address}, &resp); err != nil {
		log.Fatal(err)
	}
	fmt.Println("job:", resp.JobID)

	if !wait {
		return
	}

	for {
		var status jobStatus
		if err := call(http.MethodGet, "/v1/mining/jobs/"+resp.JobID, nil, &status); err != nil {
			log.Fatal(err)
		}

		if status.State != "running" {
			if err := printJSON(status); err != nil {
				log.Fatal(err)
			}
			return
		}

		time.Sleep(500 * time.Millisecond)
	}
}

func jobRun(cmd *cobra.Command, args []string) {
	switch {
	case jobID == "":
		var list []jobStatus
		if err := call(http.MethodGet, "/v1/mining/jobs", nil, &list); err != nil {
			log.Fatal(err)
		}
		for _, j := range list {
			fmt.Printf("%s  %-8s  %s\n", j.ID, j.State, j.Miner)
		}
		return

	case cancel:
		var status jobStatus
		if err := call(http.MethodDelete, "/v1/mining/jobs/"+jobID, nil, &status); err != nil {
			log.Fatal(err)
		}
		fmt.Println("cancelled:", status.ID)
		return
	}

	var status jobStatus
	if err := call(http.MethodGet, "/v1/mining/jobs/"+jobID, nil, &status); err != nil {
		log.Fatal(err)
	}

	if err := printJSON(status); err != nil {
		log.Fatal(err)
	}
}
