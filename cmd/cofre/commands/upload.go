package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rmontero/cofre/internal/errors"
	"github.com/rmontero/cofre/internal/metrics"
	"github.com/rmontero/cofre/internal/paths"
	"github.com/rmontero/cofre/internal/storage"
)

var (
	uploadBucket string
	uploadPrefix string
	uploadRegion string
	uploadLocal  string
	uploadJobs   int
)

func init() {
	uploadCmd.Flags().StringVar(&uploadBucket, "bucket", "", "S3 bucket (default from config)")
	uploadCmd.Flags().StringVar(&uploadPrefix, "prefix", "", "S3 key prefix (default from config)")
	uploadCmd.Flags().StringVar(&uploadRegion, "region", "", "AWS region (default from config)")
	uploadCmd.Flags().StringVar(&uploadLocal, "local", "",
		"copy to this local directory instead of S3")
	uploadCmd.Flags().IntVar(&uploadJobs, "jobs", 0,
		"parallel uploads (default: number of CPUs)")
	rootCmd.AddCommand(uploadCmd)
}

var uploadCmd = &cobra.Command{
	Use:   "upload <file>...",
	Short: "Push artifacts or fragments to offsite storage",
	Long: `Copy finished artifacts or fragment files to offsite storage. The
default target is S3 using the ambient AWS credential chain; --local
switches to a plain directory copy for mounted drives and network
shares.`,
	Example: `  # Upload fragments to the configured bucket
  cofre upload /mnt/a/taxes.zip.part000 /mnt/a/taxes.zip.part003

  # Copy an artifact to a mounted NAS share instead
  cofre upload taxes.zip --local /mnt/nas/backups`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUpload,
}

func runUpload(cmd *cobra.Command, args []string) error {
	files := make([]string, len(args))
	for i, a := range args {
		files[i] = paths.ExpandHome(a)
	}

	if uploadLocal != "" {
		res, err := storage.CopyLocal(files, paths.ExpandHome(uploadLocal))
		if err != nil {
			return errors.NewSystemError(err, "")
		}
		if !quiet {
			fmt.Printf("%s✓%s Copied %d file(s), %s\n",
				colorGreen, colorReset, res.Copied, metrics.FormatBytes(res.Bytes))
		}
		return nil
	}

	bucket := uploadBucket
	if bucket == "" {
		bucket = cfg.Upload.Bucket
	}
	if bucket == "" {
		return errors.NewUserError(errors.New("no bucket configured"),
			"Pass --bucket or set upload.bucket in the config file")
	}
	prefix := uploadPrefix
	if prefix == "" {
		prefix = cfg.Upload.Prefix
	}
	region := uploadRegion
	if region == "" {
		region = cfg.Upload.Region
	}

	client, err := storage.NewClient(region)
	if err != nil {
		return errors.NewSystemError(err, "Check AWS credentials and region")
	}

	var opts []storage.UploaderOption
	if uploadJobs > 0 {
		opts = append(opts, storage.WithConcurrency(uploadJobs))
	}
	uploader := storage.NewUploader(client, bucket, prefix, opts...)

	res, err := uploader.Upload(cmd.Context(), files)
	if err != nil {
		return errors.NewSystemError(err, "Check AWS credentials and bucket permissions")
	}

	if !quiet {
		fmt.Printf("%s✓%s Uploaded %d file(s), %s to s3://%s/%s\n",
			colorGreen, colorReset, res.Uploaded, metrics.FormatBytes(res.Bytes), bucket, prefix)
		for _, key := range res.Keys {
			fmt.Printf("  %s%s%s\n", colorCyan, filepath.Base(key), colorReset)
		}
	}
	return nil
}
