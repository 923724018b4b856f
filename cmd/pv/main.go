package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"pv-go/internal/app"
	"pv-go/internal/config"
	"pv-go/internal/keyring"
	"pv-go/internal/model"
	"pv-go/internal/vault"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer a.Close().
// operation identifies the CLI command being run (e.g. "Unlock", "CreateBackup").
func newApp(operation string) (*app.App, *config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.New(cfg, operation)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, cfg, nil
}

// unlockedApp creates an App and unlocks it, pulling the credential from the
// OS keyring when cached and prompting otherwise.
func unlockedApp(operation string) (*app.App, *config.Config, error) {
	a, cfg, err := newApp(operation)
	if err != nil {
		return nil, nil, err
	}

	credential, fromKeyring := "", false
	if keyring.HasCredential(cfg.VaultID) {
		credential, err = keyring.GetCredential(cfg.VaultID)
		fromKeyring = err == nil
	}
	if !fromKeyring {
		credential, err = promptSecret("Credential: ")
		if err != nil {
			a.Close()
			return nil, nil, err
		}
	}

	ok, err := a.Unlock(credential, model.MethodPassword)
	if err != nil {
		a.Close()
		if errors.Is(err, vault.ErrLockedOut) {
			return nil, nil, fmt.Errorf("vault is locked out; run 'pv reset' with your recovery code")
		}
		return nil, nil, err
	}
	if !ok {
		a.Close()
		if fromKeyring {
			// A stale cached credential must not burn further attempts.
			keyring.DeleteCredential(cfg.VaultID)
		}
		return nil, nil, fmt.Errorf("credential rejected")
	}

	return a, cfg, nil
}

// promptSecret reads a secret from the terminal without echo.
func promptSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading secret: %w", err)
	}
	return string(b), nil
}

func parseMethod(s string) (model.CredentialMethod, error) {
	switch model.CredentialMethod(s) {
	case model.MethodPIN, model.MethodPattern, model.MethodPassword:
		return model.CredentialMethod(s), nil
	default:
		return "", fmt.Errorf("unknown credential method %q (pin, pattern, password)", s)
	}
}

func fileTypeFromName(name string) model.FileType {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".heic":
		return model.FileTypeImage
	case ".mp4", ".mov", ".avi", ".mkv", ".webm":
		return model.FileTypeVideo
	case ".mp3", ".wav", ".flac", ".ogg", ".m4a":
		return model.FileTypeAudio
	case ".pdf", ".doc", ".docx", ".txt", ".md", ".odt":
		return model.FileTypeDocument
	default:
		return model.FileTypeOther
	}
}

var rootCmd = &cobra.Command{
	Use:   "pv",
	Short: "Personal encrypted file vault",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		vaultID := uuid.New().String()
		cfg := config.NewConfig(vaultID, defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Vault ID: %s\n", vaultID)
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Vault ID:      %s\n", cfg.VaultID)
		fmt.Printf("Base Dir:      %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:       %s\n", cfg.LogDir)
		fmt.Printf("Max Attempts:  %d\n", cfg.MaxAttempts)
		fmt.Printf("Self Destruct: %v\n", cfg.SelfDestruct)
		fmt.Printf("Storage:       %s\n", cfg.Storage.Type)
		fmt.Printf("Cloud:         %s\n", cfg.Cloud.Type)
		return nil
	},
}

// setup command
var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Set the unlock credential for a new vault",
	RunE: func(cmd *cobra.Command, args []string) error {
		methodFlag, _ := cmd.Flags().GetString("method")
		method, err := parseMethod(methodFlag)
		if err != nil {
			return err
		}

		a, _, err := newApp("Setup")
		if err != nil {
			return err
		}
		defer a.Close()

		credential, err := promptSecret("New credential: ")
		if err != nil {
			return err
		}
		confirm, err := promptSecret("Confirm credential: ")
		if err != nil {
			return err
		}
		if credential != confirm {
			return fmt.Errorf("credentials do not match")
		}

		code, err := a.Setup(credential, method)
		if err != nil {
			return fmt.Errorf("setting up vault: %w", err)
		}

		fmt.Println("Vault set up.")
		fmt.Printf("Recovery code (store it somewhere safe, it is shown ONCE): %s\n", code)
		return nil
	},
}

// unlock command
var unlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Verify the unlock credential",
	RunE: func(cmd *cobra.Command, args []string) error {
		remember, _ := cmd.Flags().GetBool("remember")

		a, cfg, err := newApp("Unlock")
		if err != nil {
			return err
		}
		defer a.Close()

		credential, err := promptSecret("Credential: ")
		if err != nil {
			return err
		}

		ok, err := a.Unlock(credential, model.MethodPassword)
		if err != nil {
			if errors.Is(err, vault.ErrLockedOut) {
				return fmt.Errorf("vault is locked out; run 'pv reset' with your recovery code")
			}
			if errors.Is(err, vault.ErrSelfDestructed) {
				return fmt.Errorf("vault has self-destructed")
			}
			return err
		}
		if !ok {
			state, serr := a.AttemptState()
			if serr == nil {
				fmt.Printf("Credential rejected (%d failed attempt(s), lockout at %d).\n", state.Count, cfg.MaxAttempts)
			} else {
				fmt.Println("Credential rejected.")
			}
			os.Exit(1)
		}

		if remember {
			if err := keyring.SaveCredential(cfg.VaultID, credential); err != nil {
				fmt.Fprintf(os.Stderr, "warning: could not cache credential: %v\n", err)
			}
		}
		fmt.Println("Vault unlocked.")
		return nil
	},
}

// passwd command
var passwdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Change the unlock credential",
	RunE: func(cmd *cobra.Command, args []string) error {
		methodFlag, _ := cmd.Flags().GetString("method")
		method, err := parseMethod(methodFlag)
		if err != nil {
			return err
		}

		a, cfg, err := newApp("ChangeCredential")
		if err != nil {
			return err
		}
		defer a.Close()

		oldCredential, err := promptSecret("Current credential: ")
		if err != nil {
			return err
		}
		newCredential, err := promptSecret("New credential: ")
		if err != nil {
			return err
		}

		ok, err := a.ChangeCredential(oldCredential, newCredential, method)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("current credential rejected")
		}

		// A cached credential is now stale.
		if keyring.HasCredential(cfg.VaultID) {
			keyring.DeleteCredential(cfg.VaultID)
		}
		fmt.Println("Credential changed.")
		return nil
	},
}

// reset command
var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear a lockout with the recovery code",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := newApp("ResetLockout")
		if err != nil {
			return err
		}
		defer a.Close()

		code, err := promptSecret("Recovery code: ")
		if err != nil {
			return err
		}

		if err := a.ResetLockout(code); err != nil {
			return fmt.Errorf("resetting lockout: %w", err)
		}
		fmt.Println("Lockout cleared.")
		return nil
	},
}

// status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show lockout status",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cfg, err := newApp("GetStatus")
		if err != nil {
			return err
		}
		defer a.Close()

		state, err := a.AttemptState()
		if err != nil {
			if errors.Is(err, vault.ErrSelfDestructed) {
				fmt.Println("Vault has self-destructed.")
				return nil
			}
			return err
		}

		if state.Locked {
			fmt.Println("Vault is LOCKED OUT. Use 'pv reset' with your recovery code.")
		} else {
			fmt.Printf("Vault is available (%d/%d failed attempts).\n", state.Count, cfg.MaxAttempts)
		}
		return nil
	},
}

// add command
var addCmd = &cobra.Command{
	Use:   "add PATH",
	Short: "Encrypt a file into the vault",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		folderID, _ := cmd.Flags().GetString("folder")

		a, _, err := unlockedApp("AddFile")
		if err != nil {
			return err
		}
		defer a.Close()

		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading file: %w", err)
		}
		name := filepath.Base(args[0])

		store, err := a.Store()
		if err != nil {
			return err
		}
		file, err := store.AddFile(raw, name, fileTypeFromName(name), folderID)
		if err != nil {
			return fmt.Errorf("adding file: %w", err)
		}

		fmt.Printf("Added %s (%d bytes) as %s\n", file.Name, file.Size, file.ID)
		return nil
	},
}

// get command
var getCmd = &cobra.Command{
	Use:   "get ID PATH",
	Short: "Decrypt a vault file to a local path",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := unlockedApp("GetFileContent")
		if err != nil {
			return err
		}
		defer a.Close()

		store, err := a.Store()
		if err != nil {
			return err
		}
		plaintext, err := store.GetFileContent(args[0])
		if err != nil {
			return fmt.Errorf("reading vault file: %w", err)
		}

		if err := os.WriteFile(args[1], plaintext, 0600); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
		fmt.Printf("Wrote %d bytes to %s\n", len(plaintext), args[1])
		return nil
	},
}

// ls command
var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List vault files",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := unlockedApp("ListFiles")
		if err != nil {
			return err
		}
		defer a.Close()

		store, err := a.Store()
		if err != nil {
			return err
		}
		files, err := store.ListFiles()
		if err != nil {
			return err
		}
		folders, err := store.ListFolders()
		if err != nil {
			return err
		}

		if len(folders) > 0 {
			for _, f := range folders {
				fmt.Printf("d %-36s  %-20s  %d file(s)\n", f.ID, f.Name, f.FileCount)
			}
		}
		if len(files) == 0 {
			fmt.Println("No files in vault.")
			return nil
		}
		for _, f := range files {
			fav := " "
			if f.IsFavorite {
				fav = "*"
			}
			tags := ""
			if len(f.Tags) > 0 {
				tags = "  [" + strings.Join(f.Tags, ",") + "]"
			}
			fmt.Printf("%s %-36s  %-10s  %8d  %s  %s%s\n",
				fav, f.ID, f.Type, f.Size,
				f.DateModified.Format("2006-01-02 15:04:05"),
				f.Name, tags,
			)
		}
		return nil
	},
}

// rm command
var rmCmd = &cobra.Command{
	Use:   "rm ID",
	Short: "Delete a vault file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		permanent, _ := cmd.Flags().GetBool("permanent")

		a, _, err := unlockedApp("DeleteFile")
		if err != nil {
			return err
		}
		defer a.Close()

		store, err := a.Store()
		if err != nil {
			return err
		}
		if err := store.DeleteFile(args[0], permanent); err != nil {
			return fmt.Errorf("deleting file: %w", err)
		}

		if permanent {
			fmt.Println("File permanently deleted.")
		} else {
			fmt.Println("File moved to recycle bin.")
		}
		return nil
	},
}

// mv command
var mvCmd = &cobra.Command{
	Use:   "mv ID... FOLDER_ID",
	Short: "Move files to a folder (use \"\" for root)",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := unlockedApp("MoveFiles")
		if err != nil {
			return err
		}
		defer a.Close()

		store, err := a.Store()
		if err != nil {
			return err
		}
		ids := args[:len(args)-1]
		folderID := args[len(args)-1]
		if err := store.MoveFiles(ids, folderID); err != nil {
			return fmt.Errorf("moving files: %w", err)
		}
		fmt.Printf("Moved %d file(s)\n", len(ids))
		return nil
	},
}

// rename command
var renameCmd = &cobra.Command{
	Use:   "rename ID NAME",
	Short: "Rename a vault file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := unlockedApp("RenameFile")
		if err != nil {
			return err
		}
		defer a.Close()

		store, err := a.Store()
		if err != nil {
			return err
		}
		if err := store.RenameFile(args[0], args[1]); err != nil {
			return fmt.Errorf("renaming file: %w", err)
		}
		fmt.Println("Renamed.")
		return nil
	},
}

// search command
var searchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Search files by name or tag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := unlockedApp("SearchFiles")
		if err != nil {
			return err
		}
		defer a.Close()

		store, err := a.Store()
		if err != nil {
			return err
		}
		results, err := store.SearchFiles(args[0])
		if err != nil {
			return err
		}

		found := 0
		for f := range results {
			found++
			fmt.Printf("%-36s  %s\n", f.ID, f.Name)
		}
		if found == 0 {
			fmt.Println("No matches.")
		}
		return nil
	},
}

// tag command
var tagCmd = &cobra.Command{
	Use:   "tag ID TAG",
	Short: "Add a tag to a file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		remove, _ := cmd.Flags().GetBool("remove")

		a, _, err := unlockedApp("TagFile")
		if err != nil {
			return err
		}
		defer a.Close()

		store, err := a.Store()
		if err != nil {
			return err
		}
		if remove {
			err = store.RemoveTag(args[0], args[1])
		} else {
			err = store.AddTag(args[0], args[1])
		}
		if err != nil {
			return fmt.Errorf("updating tags: %w", err)
		}
		fmt.Println("Tags updated.")
		return nil
	},
}

// fav command
var favCmd = &cobra.Command{
	Use:   "fav ID",
	Short: "Toggle the favorite flag on a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := unlockedApp("ToggleFavorite")
		if err != nil {
			return err
		}
		defer a.Close()

		store, err := a.Store()
		if err != nil {
			return err
		}
		fav, err := store.ToggleFavorite(args[0])
		if err != nil {
			return fmt.Errorf("toggling favorite: %w", err)
		}
		if fav {
			fmt.Println("Marked as favorite.")
		} else {
			fmt.Println("Favorite removed.")
		}
		return nil
	},
}

// usage command
var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show storage usage",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := unlockedApp("StorageUsage")
		if err != nil {
			return err
		}
		defer a.Close()

		store, err := a.Store()
		if err != nil {
			return err
		}
		usage, err := store.StorageUsage()
		if err != nil {
			return err
		}

		fmt.Printf("Vault usage: %d bytes (%.1f%% of device)\n", usage.UsedBytes, usage.UsedPercent)
		fmt.Printf("Device:      %d bytes total, %d bytes available\n", usage.TotalBytes, usage.AvailableBytes)
		return nil
	},
}

// folder command
var folderCmd = &cobra.Command{
	Use:   "folder",
	Short: "Manage folders",
}

var folderAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Create a folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		parentID, _ := cmd.Flags().GetString("parent")

		a, _, err := unlockedApp("AddFolder")
		if err != nil {
			return err
		}
		defer a.Close()

		store, err := a.Store()
		if err != nil {
			return err
		}
		folder, err := store.AddFolder(args[0], parentID)
		if err != nil {
			return fmt.Errorf("creating folder: %w", err)
		}
		fmt.Printf("Created folder %s (%s)\n", folder.Name, folder.ID)
		return nil
	},
}

var folderRenameCmd = &cobra.Command{
	Use:   "rename ID NAME",
	Short: "Rename a folder",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := unlockedApp("RenameFolder")
		if err != nil {
			return err
		}
		defer a.Close()

		store, err := a.Store()
		if err != nil {
			return err
		}
		if err := store.RenameFolder(args[0], args[1]); err != nil {
			return fmt.Errorf("renaming folder: %w", err)
		}
		fmt.Println("Renamed.")
		return nil
	},
}

var folderRmCmd = &cobra.Command{
	Use:   "rm ID",
	Short: "Delete a folder AND permanently destroy its files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			return fmt.Errorf("folder deletion permanently destroys its files (no recycle bin); pass --yes to confirm")
		}

		a, _, err := unlockedApp("DeleteFolder")
		if err != nil {
			return err
		}
		defer a.Close()

		store, err := a.Store()
		if err != nil {
			return err
		}
		if err := store.DeleteFolder(args[0]); err != nil {
			return fmt.Errorf("deleting folder: %w", err)
		}
		fmt.Println("Folder and its files deleted.")
		return nil
	},
}

// bin command
var binCmd = &cobra.Command{
	Use:   "bin",
	Short: "Manage the recycle bin",
}

var binLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List recycled files",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := unlockedApp("ListRecycled")
		if err != nil {
			return err
		}
		defer a.Close()

		bin, err := a.Bin()
		if err != nil {
			return err
		}
		entries, err := bin.List()
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("Recycle bin is empty.")
			return nil
		}
		for _, e := range entries {
			fmt.Printf("%-36s  %-20s  deleted %s  %d day(s) left\n",
				e.File.ID, e.File.Name,
				e.DeletedAt.Format("2006-01-02"), e.DaysRemaining,
			)
		}
		return nil
	},
}

var binRestoreCmd = &cobra.Command{
	Use:   "restore ID",
	Short: "Restore a file from the recycle bin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := unlockedApp("RestoreFromBin")
		if err != nil {
			return err
		}
		defer a.Close()

		store, err := a.Store()
		if err != nil {
			return err
		}
		file, err := store.RestoreFromBin(args[0])
		if err != nil {
			return fmt.Errorf("restoring file: %w", err)
		}
		fmt.Printf("Restored %s\n", file.Name)
		return nil
	},
}

var binEmptyCmd = &cobra.Command{
	Use:   "empty",
	Short: "Permanently purge the recycle bin",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := unlockedApp("EmptyRecycleBin")
		if err != nil {
			return err
		}
		defer a.Close()

		bin, err := a.Bin()
		if err != nil {
			return err
		}
		if err := bin.Empty(); err != nil {
			return fmt.Errorf("emptying recycle bin: %w", err)
		}
		fmt.Println("Recycle bin emptied.")
		return nil
	},
}

// backup command
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Manage encrypted backups",
}

var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an encrypted backup",
	RunE: func(cmd *cobra.Command, args []string) error {
		cloudFlag, _ := cmd.Flags().GetBool("cloud")

		a, _, err := unlockedApp("CreateBackup")
		if err != nil {
			return err
		}
		defer a.Close()

		passphrase, err := promptSecret("Backup passphrase: ")
		if err != nil {
			return err
		}

		backups, err := a.Backups()
		if err != nil {
			return err
		}

		var meta *model.BackupMetadata
		if cloudFlag {
			meta, err = backups.CreateCloudBackup(context.Background(), passphrase)
		} else {
			meta, err = backups.CreateBackup(passphrase, true)
		}
		if err != nil {
			return fmt.Errorf("creating backup: %w", err)
		}

		fmt.Printf("Backup %s created (%s, %d files, %d bytes)\n",
			meta.ID, meta.Type, meta.FileCount, meta.TotalSize)
		return nil
	},
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "View backup history",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := unlockedApp("GetBackupHistory")
		if err != nil {
			return err
		}
		defer a.Close()

		backups, err := a.Backups()
		if err != nil {
			return err
		}
		history, err := backups.History()
		if err != nil {
			return err
		}

		if len(history) == 0 {
			fmt.Println("No backups recorded.")
			return nil
		}
		for _, m := range history {
			fmt.Printf("%-36s  %s  %-5s  %4d files  %10d bytes  %s\n",
				m.ID,
				m.Timestamp.Format("2006-01-02 15:04:05"),
				m.Type, m.FileCount, m.TotalSize,
				m.Checksum[:12],
			)
		}
		return nil
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore ID",
	Short: "Restore the vault from a backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := unlockedApp("RestoreBackup")
		if err != nil {
			return err
		}
		defer a.Close()

		passphrase, err := promptSecret("Backup passphrase: ")
		if err != nil {
			return err
		}

		backups, err := a.Backups()
		if err != nil {
			return err
		}

		err = backups.RestoreBackup(context.Background(), args[0], passphrase, func(p vault.RestoreProgress) {
			if p.Err != nil {
				return
			}
			if p.CurrentFile != "" {
				fmt.Printf("\r%-12s %3d%%  %s", p.Stage, p.Percent, p.CurrentFile)
			} else {
				fmt.Printf("\r%-12s %3d%%", p.Stage, p.Percent)
			}
		})
		fmt.Println()
		if err != nil {
			if errors.Is(err, vault.ErrIntegrityViolation) {
				return fmt.Errorf("backup is corrupt; nothing was restored")
			}
			if errors.Is(err, vault.ErrDecryptionFailure) {
				return fmt.Errorf("wrong backup passphrase")
			}
			return fmt.Errorf("restoring backup: %w", err)
		}
		fmt.Println("Restore complete.")
		return nil
	},
}

var backupRmCmd = &cobra.Command{
	Use:   "rm ID",
	Short: "Delete a backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := unlockedApp("DeleteBackup")
		if err != nil {
			return err
		}
		defer a.Close()

		backups, err := a.Backups()
		if err != nil {
			return err
		}
		if err := backups.DeleteBackup(context.Background(), args[0]); err != nil {
			return fmt.Errorf("deleting backup: %w", err)
		}
		fmt.Println("Backup deleted.")
		return nil
	},
}

// destroy command
var destroyCmd = &cobra.Command{
	Use:   "destroy",
	Short: "Irreversibly erase the entire vault",
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			return fmt.Errorf("this erases ALL vault data irreversibly; pass --yes to confirm")
		}

		a, cfg, err := unlockedApp("DestroyVault")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Destroy(); err != nil {
			return fmt.Errorf("destroying vault: %w", err)
		}
		if keyring.HasCredential(cfg.VaultID) {
			keyring.DeleteCredential(cfg.VaultID)
		}
		fmt.Println("Vault destroyed.")
		return nil
	},
}

// forget command
var forgetCmd = &cobra.Command{
	Use:   "forget",
	Short: "Remove the cached credential from the OS keyring",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return err
		}
		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return err
		}
		if !keyring.HasCredential(cfg.VaultID) {
			fmt.Println("No cached credential.")
			return nil
		}
		if err := keyring.DeleteCredential(cfg.VaultID); err != nil {
			return fmt.Errorf("removing cached credential: %w", err)
		}
		fmt.Println("Cached credential removed.")
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// folder subcommands
	folderCmd.AddCommand(folderAddCmd)
	folderAddCmd.Flags().String("parent", "", "Parent folder ID")
	folderCmd.AddCommand(folderRenameCmd)
	folderCmd.AddCommand(folderRmCmd)
	folderRmCmd.Flags().Bool("yes", false, "Confirm destructive deletion")

	// bin subcommands
	binCmd.AddCommand(binLsCmd)
	binCmd.AddCommand(binRestoreCmd)
	binCmd.AddCommand(binEmptyCmd)

	// backup subcommands
	backupCmd.AddCommand(backupCreateCmd)
	backupCreateCmd.Flags().Bool("cloud", false, "Upload the artifact to cloud storage")
	backupCmd.AddCommand(backupListCmd)
	backupCmd.AddCommand(backupRestoreCmd)
	backupCmd.AddCommand(backupRmCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(setupCmd)
	setupCmd.Flags().String("method", "password", "Credential method (pin, pattern, password)")
	rootCmd.AddCommand(unlockCmd)
	unlockCmd.Flags().Bool("remember", false, "Cache the credential in the OS keyring")
	rootCmd.AddCommand(passwdCmd)
	passwdCmd.Flags().String("method", "password", "Credential method (pin, pattern, password)")
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().String("folder", "", "Destination folder ID")
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(rmCmd)
	rmCmd.Flags().Bool("permanent", false, "Skip the recycle bin")
	rootCmd.AddCommand(mvCmd)
	rootCmd.AddCommand(renameCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(tagCmd)
	tagCmd.Flags().Bool("remove", false, "Remove the tag instead of adding it")
	rootCmd.AddCommand(favCmd)
	rootCmd.AddCommand(usageCmd)
	rootCmd.AddCommand(folderCmd)
	rootCmd.AddCommand(binCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(destroyCmd)
	rootCmd.AddCommand(forgetCmd)
}
